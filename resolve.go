package ytgrab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

var (
	ErrNoProviders = errors.New("no providers configured")
)

// ProviderName identifies one retrieval strategy in the fallback chain.
type ProviderName string

const (
	ProviderNative     ProviderName = "native"
	ProviderConversion ProviderName = "convapi"
	ProviderMirror     ProviderName = "mirror"
)

// ResolveOptions parameterize a single resolution.
type ResolveOptions struct {
	// TargetHeight caps the video height of the selected rendition; 0 means best available.
	TargetHeight int
	// AudioOnly selects an audio-only rendition instead of combined audio/video.
	AudioOnly bool
	// CookieFile is the path of an optional Netscape-format cookie file. Adapters
	// treat it as opaque; the caller owns its lifetime.
	CookieFile string
}

// Format is one candidate rendition of a resolved stream.
type Format struct {
	ID        string
	Height    int // 0 for audio-only formats
	Container string
	Bitrate   int
	SizeBytes int64
	IsAudio   bool
}

// ProgressFunc receives cumulative transfer progress. total is 0 when unknown.
type ProgressFunc func(downloaded, total int64)

// TransferFunc downloads the selected rendition to dst, reporting progress as it goes.
// It must stop promptly when ctx is cancelled.
type TransferFunc func(ctx context.Context, dst string, progress ProgressFunc) error

// ResolvedStream is the output of a successful resolution. Exactly one of
// DirectURL and Transfer is set: a direct URL is fetched by the Transport
// Fetcher, while Transfer means the source provider performs the download
// through its own client.
type ResolvedStream struct {
	Provider  ProviderName
	Title     string
	Channel   string
	Thumbnail string
	Duration  time.Duration
	Views     int64
	Uploaded  time.Time

	DirectURL string
	Container string
	Formats   []Format
	Transfer  TransferFunc

	// Subtitles fetches subtitles in SRT form. Nil when the provider cannot
	// supply them.
	Subtitles func(ctx context.Context) (string, error)
}

// An Adapter is one independent strategy for turning a media URL into a
// playable stream. Adapters must be side-effect-free: resolution may run
// more than once for the same URL (preview, then download).
type Adapter interface {
	Name() ProviderName
	Resolve(ctx context.Context, url string, opts ResolveOptions) (*ResolvedStream, error)
}

// Resolver tries each adapter in priority order until one succeeds. A failed
// attempt never aborts the chain; only total exhaustion surfaces an error,
// aggregating each provider family's failure.
type Resolver struct {
	adapters       []Adapter
	attemptTimeout time.Duration
	log            *zap.SugaredLogger
}

func NewResolver(attemptTimeout time.Duration, adapters ...Adapter) *Resolver {
	return &Resolver{
		adapters:       adapters,
		attemptTimeout: attemptTimeout,
		log:            zap.S().Named("resolver"),
	}
}

// Providers returns the names of the configured adapters in priority order.
func (r *Resolver) Providers() []ProviderName {
	names := make([]ProviderName, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

func (r *Resolver) Resolve(ctx context.Context, url string, opts ResolveOptions) (*ResolvedStream, error) {
	if len(r.adapters) == 0 {
		return nil, ErrNoProviders
	}
	var failures error
	for _, a := range r.adapters {
		attemptCtx := ctx
		cancel := func() {}
		if r.attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		}
		resolved, err := a.Resolve(attemptCtx, url, opts)
		cancel()
		if err == nil && resolved != nil {
			resolved.Provider = a.Name()
			r.log.Infow("resolved", "provider", a.Name(), "title", resolved.Title)
			return resolved, nil
		}
		if err == nil {
			err = errors.New("adapter returned no stream")
		}
		r.log.Warnw("provider attempt failed", "provider", a.Name(), "error", err)
		failures = multierror.Append(failures, multierror.Prefix(err, fmt.Sprintf("[%s]", a.Name())))
		if ctx.Err() != nil {
			// The caller gave up; trying further providers would only burn time.
			break
		}
	}
	return nil, fmt.Errorf("all providers failed for %q: %w", url, failures)
}
