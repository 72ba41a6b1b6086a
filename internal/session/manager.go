package session

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/internal/sync_"
)

type Config struct {
	DownloadDir string
	Resolver    *ytgrab.Resolver
	Fetcher     *ytgrab.Fetcher
	// Cookies is a raw Netscape-format cookie blob, materialized as a
	// short-lived file for the duration of each resolution.
	Cookies     string
	HistorySize int
	// RetireDelay is how long a finished session stays queryable before it is
	// dropped from the registry. History keeps a record beyond that.
	RetireDelay time.Duration
	// ProgressInterval is the minimum interval between progress updates.
	ProgressInterval time.Duration
	// ProgressGrace is how long Stream retries an unknown session id before
	// reporting it as not found.
	ProgressGrace time.Duration
}

var DefaultConfig = Config{
	DownloadDir:      ".",
	Fetcher:          ytgrab.NewFetcher(),
	HistorySize:      50,
	RetireDelay:      5 * time.Minute,
	ProgressInterval: 500 * time.Millisecond,
	ProgressGrace:    2 * time.Second,
}

type sessionsByID = map[ID]*Session

type Manager struct {
	config    Config
	ctx       context.Context
	ctxCancel context.CancelFunc
	log       *zap.SugaredLogger

	sessions *sync_.RWMutexed[sessionsByID]
	history  *History
	closed   sync_.Event
}

func NewManager(config Config, ctx context.Context) (*Manager, error) {
	if config.Resolver == nil {
		return nil, ytgrab.ErrNoProviders
	}
	if config.Fetcher == nil {
		config.Fetcher = ytgrab.NewFetcher()
	}
	if err := os.MkdirAll(config.DownloadDir, 0o775); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		config:    config,
		ctx:       ctx,
		ctxCancel: cancel,
		log:       zap.S().Named("manager"),

		sessions: sync_.NewRWMutexed(make(sessionsByID)),
		history:  NewHistory(config.HistorySize),
	}
	return m, nil
}

type CreateRequest struct {
	URL string `json:"url"`
	// Quality caps the video height (e.g. 1080); 0 means best available.
	Quality   int  `json:"quality"`
	AudioOnly bool `json:"audio_only"`
	Subtitles bool `json:"subtitles"`
	// Cookies optionally overrides the manager-wide cookie blob for this
	// session only.
	Cookies string `json:"cookies"`
}

// Create validates the request and starts a new download session. Validation
// failures surface before any worker goroutine exists, so a rejected request
// leaves no session behind.
func (m *Manager) Create(req CreateRequest) (*Session, error) {
	if m.closed.IsSet() {
		return nil, ErrClosed
	}
	if req.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	mediaID, err := ytgrab.ExtractMediaID(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	opts := ytgrab.ResolveOptions{
		TargetHeight: req.Quality,
		AudioOnly:    req.AudioOnly,
	}
	s := newSession(m, req, mediaID, opts)
	_ = m.sessions.Locked(func(sessions sessionsByID) error {
		sessions[s.ID] = s
		return nil
	})
	m.log.Infow("session created", "session_id", s.ID, "media_id", mediaID, "audio_only", req.AudioOnly)
	return s, nil
}

func (m *Manager) Get(id ID) (s *Session) {
	_ = m.sessions.RLocked(func(sessions sessionsByID) error {
		s = sessions[id]
		return nil
	})
	return s
}

// Cancel requests cancellation of a session. Cancelling an already-terminal
// session is a no-op, not an error.
func (m *Manager) Cancel(id ID) error {
	s := m.Get(id)
	if s == nil {
		return ErrNotFound
	}
	s.Cancel()
	return nil
}

// Active returns snapshots of all non-terminal sessions, oldest first.
func (m *Manager) Active() []Snapshot {
	var live []*Session
	_ = m.sessions.RLocked(func(sessions sessionsByID) error {
		for _, s := range sessions {
			live = append(live, s)
		}
		return nil
	})
	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.Before(live[j].CreatedAt) })
	snapshots := make([]Snapshot, 0, len(live))
	for _, s := range live {
		if snap := s.Snapshot(); !snap.Status.Terminal() {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}

// History returns the finished-session history, newest first.
func (m *Manager) History() []Record {
	return m.history.List()
}

func (m *Manager) ClearHistory() {
	m.history.Clear()
}

// sessionFinished records the terminal outcome and schedules removal from the
// registry after the retirement delay.
func (m *Manager) sessionFinished(s *Session) {
	snap := s.Snapshot()
	m.history.Add(Record{
		SessionID:  s.ID,
		URL:        s.URL,
		Title:      snap.Title,
		Filename:   snap.Filename,
		Status:     snap.Status,
		Provider:   snap.Provider,
		Size:       snap.Filesize,
		Error:      snap.Error,
		FinishedAt: time.Now(),
	})
	if m.closed.IsSet() {
		return
	}
	time.AfterFunc(m.config.RetireDelay, func() {
		_ = m.sessions.Locked(func(sessions sessionsByID) error {
			delete(sessions, s.ID)
			return nil
		})
	})
}

// OutputPath returns the on-disk path of a completed session's file.
func (m *Manager) OutputPath(id ID) (string, error) {
	s := m.Get(id)
	if s == nil {
		return "", ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Status != StatusComplete {
		return "", fmt.Errorf("%w: session is %s, not complete", ErrValidation, s.state.Status)
	}
	return s.state.OutputPath, nil
}

// Close cancels all sessions and waits for their workers to finish.
func (m *Manager) Close() {
	if !m.closed.Set() {
		return
	}
	m.ctxCancel()
	sessions := m.sessions.Swap(nil)
	var wg sync.WaitGroup
	wg.Add(len(sessions))
	for _, s := range sessions {
		go func(s *Session) {
			s.Cancel()
			<-s.Done()
			wg.Done()
		}(s)
	}
	wg.Wait()
}
