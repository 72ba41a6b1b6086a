// Package mirror resolves media metadata through a rotation of independently
// operated mirror instances that expose the same videos API shape.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	ytgrab "github.com/boobalan-831/youtube-downloader"
)

var (
	ErrNoInstances = errors.New("no mirror instances configured")
	// ErrNotFound marks a definitive "resource does not exist" answer, as
	// opposed to a transport failure. Either way the next candidate is tried,
	// since availability differs across mirrors.
	ErrNotFound = errors.New("resource does not exist")
)

type Adapter struct {
	instances []string
	client    *http.Client
	log       *zap.SugaredLogger
}

func New(instances ...string) *Adapter {
	return &Adapter{
		instances: instances,
		client:    &http.Client{},
		log:       zap.S().Named("provider.mirror"),
	}
}

func (a *Adapter) Name() ytgrab.ProviderName {
	return ytgrab.ProviderMirror
}

// Resolve queries each mirror instance in order until one returns parseable
// metadata, aggregating per-instance failures.
func (a *Adapter) Resolve(ctx context.Context, rawURL string, opts ytgrab.ResolveOptions) (*ytgrab.ResolvedStream, error) {
	if len(a.instances) == 0 {
		return nil, ErrNoInstances
	}
	mediaID, err := ytgrab.ExtractMediaID(rawURL)
	if err != nil {
		return nil, err
	}
	var failures error
	for _, instance := range a.instances {
		stream, err := a.query(ctx, instance, mediaID, opts)
		if err == nil {
			return stream, nil
		}
		a.log.Debugw("mirror instance failed", "instance", instance, "media_id", mediaID, "error", err)
		failures = multierror.Append(failures, multierror.Prefix(err, fmt.Sprintf("[%s]", instance)))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, failures
}

type videoResponse struct {
	Title           string         `json:"title"`
	Author          string         `json:"author"`
	LengthSeconds   int            `json:"lengthSeconds"`
	ViewCount       int64          `json:"viewCount"`
	Published       int64          `json:"published"`
	VideoThumbnails []thumbnail    `json:"videoThumbnails"`
	FormatStreams   []mirrorFormat `json:"formatStreams"`
	AdaptiveFormats []mirrorFormat `json:"adaptiveFormats"`
}

type thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type mirrorFormat struct {
	URL        string `json:"url"`
	Itag       string `json:"itag"`
	Type       string `json:"type"`
	Container  string `json:"container"`
	Resolution string `json:"resolution"`
	Bitrate    string `json:"bitrate"`
}

func (a *Adapter) query(ctx context.Context, instance, mediaID string, opts ytgrab.ResolveOptions) (*ytgrab.ResolvedStream, error) {
	endpoint := strings.TrimRight(instance, "/") + "/api/v1/videos/" + mediaID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mirror returned %s", resp.Status)
	}

	var decoded videoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("unparseable mirror response: %w", err)
	}

	selected, err := selectFormat(&decoded, opts)
	if err != nil {
		return nil, err
	}
	return &ytgrab.ResolvedStream{
		Title:     decoded.Title,
		Channel:   decoded.Author,
		Thumbnail: bestThumbnail(decoded.VideoThumbnails),
		Duration:  time.Duration(decoded.LengthSeconds) * time.Second,
		Views:     decoded.ViewCount,
		Uploaded:  time.Unix(decoded.Published, 0),
		DirectURL: selected.URL,
		Container: containerOf(selected),
		Formats:   candidateFormats(&decoded),
	}, nil
}

// selectFormat picks a rendition from the mirror's separate muxed and
// adaptive format arrays. Muxed formats are preferred for combined
// audio/video; audio-only requests select the adaptive audio entry with the
// highest numeric bitrate, rather than trusting list position.
func selectFormat(v *videoResponse, opts ytgrab.ResolveOptions) (*mirrorFormat, error) {
	if opts.AudioOnly {
		var best *mirrorFormat
		bestBitrate := -1
		for i := range v.AdaptiveFormats {
			f := &v.AdaptiveFormats[i]
			if !strings.HasPrefix(f.Type, "audio") || f.URL == "" {
				continue
			}
			if b := parseBitrate(f.Bitrate); b > bestBitrate {
				best, bestBitrate = f, b
			}
		}
		if best == nil {
			return nil, errors.New("no adaptive audio formats in mirror response")
		}
		return best, nil
	}

	var best *mirrorFormat
	bestHeight := -1
	for i := range v.FormatStreams {
		f := &v.FormatStreams[i]
		if f.URL == "" {
			continue
		}
		h := parseResolution(f.Resolution)
		if opts.TargetHeight > 0 && h > opts.TargetHeight {
			continue
		}
		if h > bestHeight {
			best, bestHeight = f, h
		}
	}
	if best == nil && len(v.FormatStreams) > 0 && v.FormatStreams[0].URL != "" {
		// Nothing within the cap; a working stream beats an exact match.
		best = &v.FormatStreams[0]
	}
	if best == nil {
		// No muxed streams at all; fall back to adaptive video even though it
		// carries no audio track.
		for i := range v.AdaptiveFormats {
			f := &v.AdaptiveFormats[i]
			if strings.HasPrefix(f.Type, "video") && f.URL != "" {
				best = f
				break
			}
		}
	}
	if best == nil {
		return nil, errors.New("no usable formats in mirror response")
	}
	return best, nil
}

func candidateFormats(v *videoResponse) []ytgrab.Format {
	formats := make([]ytgrab.Format, 0, len(v.FormatStreams)+len(v.AdaptiveFormats))
	for _, f := range v.FormatStreams {
		formats = append(formats, toFormat(f))
	}
	for _, f := range v.AdaptiveFormats {
		formats = append(formats, toFormat(f))
	}
	return formats
}

func toFormat(f mirrorFormat) ytgrab.Format {
	return ytgrab.Format{
		ID:        f.Itag,
		Height:    parseResolution(f.Resolution),
		Container: containerOf(&f),
		Bitrate:   parseBitrate(f.Bitrate),
		IsAudio:   strings.HasPrefix(f.Type, "audio"),
	}
}

func containerOf(f *mirrorFormat) string {
	if f.Container != "" {
		return f.Container
	}
	mime := strings.SplitN(f.Type, ";", 2)[0]
	parts := strings.SplitN(mime, "/", 2)
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "mp4"
}

func parseResolution(s string) int {
	s = strings.TrimSuffix(s, "p")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseBitrate(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func bestThumbnail(thumbnails []thumbnail) string {
	var best string
	bestWidth := -1
	for _, t := range thumbnails {
		if t.URL != "" && t.Width > bestWidth {
			best, bestWidth = t.URL, t.Width
		}
	}
	return best
}
