package session

import (
	"context"
	"sync"
	"time"

	"github.com/r3labs/diff/v3"
	"go.uber.org/zap"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/internal/pubsub"
	"github.com/boobalan-831/youtube-downloader/internal/sync_"
)

// Session is a single download attempt, driven by one worker goroutine from
// creation to a terminal status.
type Session struct {
	ID        ID
	URL       string
	MediaID   string
	CreatedAt time.Time

	opts          ytgrab.ResolveOptions
	wantSubtitles bool
	cookieBlob    string
	manager       *Manager

	ctx       context.Context
	ctxCancel context.CancelFunc

	mu    sync.RWMutex
	state state

	// cancelRequested latches the first Cancel call; the worker promotes it
	// into context cancellation and a cancelled terminal state.
	cancelRequested sync_.Event
	updates         pubsub.Publisher[Snapshot]
	done            chan struct{}
}

func newSession(manager *Manager, req CreateRequest, mediaID string, opts ytgrab.ResolveOptions) *Session {
	ctx, cancel := context.WithCancel(manager.ctx)
	s := &Session{
		ID:        NewID(),
		URL:       req.URL,
		MediaID:   mediaID,
		CreatedAt: time.Now(),

		opts:          opts,
		wantSubtitles: req.Subtitles,
		cookieBlob:    req.Cookies,
		manager:       manager,

		ctx:       ctx,
		ctxCancel: cancel,

		state:   state{Status: StatusStarting},
		updates: pubsub.NewPublisher[Snapshot](),
		done:    make(chan struct{}),
	}
	go s.run()
	go func() {
		// Cancellation must interrupt the worker even mid-transfer.
		select {
		case <-s.cancelRequested.Wait():
			s.ctxCancel()
		case <-s.done:
		}
	}()
	return s
}

// Cancel requests cancellation. Idempotent; requests after a terminal status
// are ignored.
func (s *Session) Cancel() {
	if s.Snapshot().Status.Terminal() {
		return
	}
	if s.cancelRequested.Set() {
		s.log().Info("cancel requested")
	}
}

// Snapshot returns the current externally visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot(s.ID)
}

// Done is closed once the worker has finished and the terminal snapshot has
// been published.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// update applies f to the session state, publishing a snapshot if anything
// changed. Terminal states are sticky.
func (s *Session) update(f func(*state)) {
	s.mu.Lock()
	old := s.state
	if old.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	f(&s.state)
	changed := s.state != old
	snap := s.state.snapshot(s.ID)
	s.mu.Unlock()
	if !changed {
		return
	}
	if old.Status != snap.Status {
		if changes, err := diff.Diff(old.snapshot(s.ID), snap); err == nil {
			s.log().Debugw("state transition", "changes", changes)
		}
	}
	s.updates.Send(snap)
}

func (s *Session) log() *zap.SugaredLogger {
	return zap.S().Named("session").With("session_id", s.ID)
}
