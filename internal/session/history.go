package session

import (
	"sync"
	"time"
)

// Record is one finished session in the history.
type Record struct {
	SessionID  ID        `json:"session_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Status     Status    `json:"status"`
	Provider   string    `json:"provider,omitempty"`
	Size       string    `json:"size,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// History is a bounded in-memory record of finished sessions, newest first.
// It survives session retirement but not process restart.
type History struct {
	mu      sync.Mutex
	max     int
	records []Record
}

func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{max: max}
}

func (h *History) Add(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append([]Record{r}, h.records...)
	if len(h.records) > h.max {
		h.records = h.records[:h.max]
	}
}

func (h *History) List() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}
