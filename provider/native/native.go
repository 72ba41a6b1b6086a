// Package native resolves and downloads media through a general-purpose
// extraction engine, presenting rotating client identities to the upstream
// service.
package native

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	ytgrab "github.com/boobalan-831/youtube-downloader"
)

type Adapter struct {
	identities []Identity
	log        *zap.SugaredLogger
}

func New(identities ...Identity) *Adapter {
	if len(identities) == 0 {
		identities = DefaultIdentities()
	}
	return &Adapter{
		identities: identities,
		log:        zap.S().Named("provider.native"),
	}
}

func (a *Adapter) Name() ytgrab.ProviderName {
	return ytgrab.ProviderNative
}

// Resolve iterates over client identities in order, stopping at the first
// that yields usable metadata. Identity failures are isolated and aggregated;
// the adapter as a whole fails only when every identity has failed.
func (a *Adapter) Resolve(ctx context.Context, rawURL string, opts ytgrab.ResolveOptions) (*ytgrab.ResolvedStream, error) {
	mediaID, err := ytgrab.ExtractMediaID(rawURL)
	if err != nil {
		return nil, err
	}
	var failures error
	for _, identity := range orderFor(a.identities, opts.CookieFile != "") {
		stream, err := a.resolveAs(ctx, identity, mediaID, opts)
		if err == nil {
			return stream, nil
		}
		a.log.Debugw("client identity failed", "identity", identity.Name, "media_id", mediaID, "error", err)
		failures = multierror.Append(failures, multierror.Prefix(err, fmt.Sprintf("[%s]", identity.Name)))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, failures
}

func (a *Adapter) resolveAs(ctx context.Context, identity Identity, mediaID string, opts ytgrab.ResolveOptions) (*ytgrab.ResolvedStream, error) {
	client := a.newClient(identity, opts.CookieFile)
	video, err := client.GetVideoContext(ctx, ytgrab.CanonicalURL(mediaID))
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	format, err := selectFormat(video, opts)
	if err != nil {
		return nil, err
	}
	return &ytgrab.ResolvedStream{
		Title:     video.Title,
		Channel:   video.Author,
		Thumbnail: bestThumbnail(video),
		Duration:  video.Duration,
		Views:     int64(video.Views),
		Uploaded:  video.PublishDate,
		Container: containerOf(format.MimeType),
		Formats:   candidateFormats(video),
		Transfer:  a.transfer(client, video, format),
		Subtitles: func(ctx context.Context) (string, error) {
			return a.subtitles(ctx, client, video)
		},
	}, nil
}

func (a *Adapter) newClient(identity Identity, cookieFile string) *youtube.Client {
	return &youtube.Client{
		HTTPClient: &http.Client{
			Transport: &identityTransport{
				identity:     identity,
				cookieHeader: cookieHeaderFromFile(cookieFile),
			},
		},
	}
}

// transfer streams the selected format through the extraction engine's own
// client, normalizing its progress into cumulative byte counts.
func (a *Adapter) transfer(client *youtube.Client, video *youtube.Video, format *youtube.Format) ytgrab.TransferFunc {
	return func(ctx context.Context, dst string, progress ytgrab.ProgressFunc) error {
		stream, size, err := client.GetStreamContext(ctx, video, format)
		if err != nil {
			return fmt.Errorf("failed to get stream: %w", err)
		}
		defer stream.Close()

		if dir := filepath.Dir(dst); dir != "" {
			if err := os.MkdirAll(dir, 0o775); err != nil {
				return fmt.Errorf("failed to create target dir: %w", err)
			}
		}
		out, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("failed to open target file: %w", err)
		}
		defer out.Close()

		buf := make([]byte, ytgrab.DefaultChunkSize)
		var downloaded int64
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, rerr := stream.Read(buf)
			if n > 0 {
				if _, werr := out.Write(buf[:n]); werr != nil {
					return fmt.Errorf("failed to write chunk: %w", werr)
				}
				downloaded += int64(n)
				if progress != nil {
					progress(downloaded, size)
				}
			}
			if rerr == io.EOF {
				return nil
			}
			if rerr != nil {
				return fmt.Errorf("transfer aborted: %w", rerr)
			}
		}
	}
}

func (a *Adapter) subtitles(ctx context.Context, client *youtube.Client, video *youtube.Video) (string, error) {
	transcript, err := client.GetTranscriptCtx(ctx, video, "en")
	if err != nil {
		return "", fmt.Errorf("failed to get transcript: %w", err)
	}
	return transcriptToSRT(transcript), nil
}

func transcriptToSRT(transcript youtube.VideoTranscript) string {
	var b strings.Builder
	for i, segment := range transcript {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			srtTimestamp(segment.StartMs),
			srtTimestamp(segment.StartMs+segment.Duration),
			segment.Text)
	}
	return b.String()
}

func srtTimestamp(ms int) string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// selectFormat picks the rendition to download: the highest-bitrate audio
// format for audio-only requests, otherwise the best muxed format within the
// target height.
func selectFormat(video *youtube.Video, opts ytgrab.ResolveOptions) (*youtube.Format, error) {
	if opts.AudioOnly {
		audio := video.Formats.Type("audio")
		if len(audio) == 0 {
			return nil, fmt.Errorf("no audio formats available")
		}
		best := &audio[0]
		for i := range audio {
			if audio[i].Bitrate > best.Bitrate {
				best = &audio[i]
			}
		}
		return best, nil
	}

	muxed := video.Formats.WithAudioChannels().Type("video")
	if len(muxed) == 0 {
		return nil, fmt.Errorf("no playable video formats available")
	}
	candidates := make([]*youtube.Format, 0, len(muxed))
	for i := range muxed {
		if opts.TargetHeight == 0 || muxed[i].Height <= opts.TargetHeight {
			candidates = append(candidates, &muxed[i])
		}
	}
	if len(candidates) == 0 {
		// Nothing within the cap; take the smallest available instead of failing.
		candidates = append(candidates, &muxed[0])
		for i := range muxed {
			if muxed[i].Height < candidates[0].Height {
				candidates[0] = &muxed[i]
			}
		}
		return candidates[0], nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Height != candidates[j].Height {
			return candidates[i].Height > candidates[j].Height
		}
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return candidates[0], nil
}

func candidateFormats(video *youtube.Video) []ytgrab.Format {
	formats := make([]ytgrab.Format, 0, len(video.Formats))
	for _, f := range video.Formats {
		formats = append(formats, ytgrab.Format{
			ID:        strconv.Itoa(f.ItagNo),
			Height:    f.Height,
			Container: containerOf(f.MimeType),
			Bitrate:   f.Bitrate,
			SizeBytes: f.ContentLength,
			IsAudio:   strings.HasPrefix(f.MimeType, "audio/"),
		})
	}
	return formats
}

func containerOf(mimeType string) string {
	mimeType = strings.SplitN(mimeType, ";", 2)[0]
	parts := strings.SplitN(mimeType, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "mp4"
	}
	return parts[1]
}

func bestThumbnail(video *youtube.Video) string {
	var best string
	var bestWidth uint
	for _, t := range video.Thumbnails {
		if t.URL != "" && t.Width >= bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	return best
}
