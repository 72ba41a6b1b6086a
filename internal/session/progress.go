package session

import (
	"context"
	"errors"
	"time"

	"github.com/r3labs/diff/v3"

	"github.com/boobalan-831/youtube-downloader/internal/pubsub"
)

const (
	streamBufSize     = 16
	awaitPollInterval = 50 * time.Millisecond
)

// progressKey is the identity of a snapshot for coalescing purposes: two
// snapshots with the same status and percentage are interchangeable to a
// progress display.
type progressKey struct {
	Status   Status
	Progress float64
}

// Stream returns a channel of snapshots for the session, closed after the
// terminal snapshot is delivered. Consecutive snapshots that would render
// identically are coalesced. Unknown ids are retried for a grace window
// before reporting ErrNotFound, since clients often connect to the progress
// stream while the create request is still in flight.
func (m *Manager) Stream(ctx context.Context, id ID) (<-chan Snapshot, error) {
	s, err := m.await(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.stream(ctx)
}

func (m *Manager) await(ctx context.Context, id ID) (*Session, error) {
	deadline := time.Now().Add(m.config.ProgressGrace)
	for {
		if s := m.Get(id); s != nil {
			return s, nil
		}
		if m.closed.IsSet() {
			return nil, ErrClosed
		}
		if !time.Now().Before(deadline) {
			return nil, ErrNotFound
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(awaitPollInterval):
		}
	}
}

func (s *Session) stream(ctx context.Context) (<-chan Snapshot, error) {
	out := make(chan Snapshot, streamBufSize)

	// The seed snapshot must be read before subscribing: updates queued
	// after this point are at least as fresh as the seed, so a single
	// stream never delivers an older snapshot after a newer one. Updates
	// published between the read and the subscription coalesce into the
	// seed.
	seed := s.Snapshot()
	if seed.Status.Terminal() {
		out <- seed
		close(out)
		return out, nil
	}

	ch := pubsub.NewChannel[Snapshot](streamBufSize)
	// last starts at the seed key; afterwards it is touched only from the
	// publisher's broadcast goroutine.
	last := progressKey{Status: seed.Status, Progress: seed.Progress}
	filtered := pubsub.NewFilteredSender[Snapshot](ch, func(snap Snapshot) bool {
		key := progressKey{Status: snap.Status, Progress: snap.Progress}
		if snap.Status.Terminal() || diff.Changed(last, key) {
			last = key
			return true
		}
		return false
	})

	if err := s.updates.AddSubscriber(filtered, true); err != nil {
		if errors.Is(err, pubsub.ErrPublisherClosed) {
			// The session finished since the seed was read; deliver the
			// terminal snapshot once.
			out <- s.Snapshot()
			close(out)
			return out, nil
		}
		return nil, err
	}

	go func() {
		defer close(out)
		defer ch.Close()
		select {
		case out <- seed:
		case <-ctx.Done():
			return
		}
		for {
			select {
			case snap, ok := <-ch.Receive():
				if !ok {
					// Publisher closed underneath us; the terminal snapshot
					// must still reach the subscriber.
					select {
					case out <- s.Snapshot():
					case <-ctx.Done():
					}
					return
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
				if snap.Status.Terminal() {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
