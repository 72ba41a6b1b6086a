package session

import (
	"github.com/google/uuid"

	ytgrab "github.com/boobalan-831/youtube-downloader"
)

type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

type Status string

const (
	StatusStarting    Status = "starting"
	StatusResolving   Status = "resolving"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusComplete    Status = "complete"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether the status is final. A terminal session never
// changes state again and its snapshot is always worth delivering.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// state is the mutable per-session record. All fields are comparable so state
// transitions can be detected with a plain equality check.
type state struct {
	Status          Status
	Progress        float64
	BytesDownloaded int64
	BytesTotal      int64
	SpeedBPS        float64
	ETASeconds      int
	Title           string
	OutputFilename  string
	OutputPath      string
	Provider        ytgrab.ProviderName
	Err             string
}

// Snapshot is the externally visible view of a session, with byte counts and
// rates already rendered for display. Formatted fields are derived from the
// numeric ones and never parsed back.
type Snapshot struct {
	ID         ID      `json:"session_id"`
	Status     Status  `json:"status"`
	Progress   float64 `json:"progress"`
	Downloaded string  `json:"downloaded"`
	Filesize   string  `json:"filesize"`
	Speed      string  `json:"speed"`
	ETA        string  `json:"eta"`
	Title      string  `json:"title,omitempty"`
	Filename   string  `json:"filename,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func (s state) snapshot(id ID) Snapshot {
	snap := Snapshot{
		ID:         id,
		Status:     s.Status,
		Progress:   s.Progress,
		Downloaded: ytgrab.FormatBytes(s.BytesDownloaded),
		Filesize:   ytgrab.FormatBytes(s.BytesTotal),
		Speed:      ytgrab.FormatSpeed(s.SpeedBPS),
		ETA:        ytgrab.FormatETA(s.ETASeconds),
		Title:      s.Title,
		Filename:   s.OutputFilename,
		Provider:   string(s.Provider),
		Error:      s.Err,
	}
	return snap
}
