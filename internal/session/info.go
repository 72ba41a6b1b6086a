package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/internal/cookies"
)

// FormatOption is one selectable rendition in an info response.
type FormatOption struct {
	Quality   string `json:"quality"`
	Label     string `json:"label,omitempty"`
	Container string `json:"container"`
	Size      string `json:"size"`
}

// Info is the preview payload for a media URL, with everything pre-formatted
// for display.
type Info struct {
	MediaID        string         `json:"media_id"`
	Title          string         `json:"title"`
	Channel        string         `json:"channel"`
	Thumbnail      string         `json:"thumbnail"`
	Duration       string         `json:"duration"`
	Views          int64          `json:"views"`
	ViewsFormatted string         `json:"views_formatted"`
	UploadDate     string         `json:"upload_date,omitempty"`
	Provider       string         `json:"provider"`
	Resolutions    []FormatOption `json:"resolutions"`
	AudioFormats   []FormatOption `json:"audio_formats"`
}

// GetInfo resolves a URL without downloading it, through the same provider
// chain a download would use.
func (m *Manager) GetInfo(ctx context.Context, url string) (*Info, error) {
	mediaID, err := ytgrab.ExtractMediaID(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	cookieFile, cleanup, err := cookies.Scoped(m.config.Cookies)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	resolved, err := m.config.Resolver.Resolve(ctx, url, ytgrab.ResolveOptions{CookieFile: cookieFile})
	if err != nil {
		return nil, err
	}

	info := &Info{
		MediaID:        mediaID,
		Title:          resolved.Title,
		Channel:        resolved.Channel,
		Thumbnail:      resolved.Thumbnail,
		Duration:       ytgrab.FormatDuration(resolved.Duration),
		Views:          resolved.Views,
		ViewsFormatted: humanize.Comma(resolved.Views),
		Provider:       string(resolved.Provider),
		Resolutions:    resolutionOptions(resolved.Formats),
		AudioFormats:   audioOptions(resolved.Formats),
	}
	if !resolved.Uploaded.IsZero() {
		info.UploadDate = resolved.Uploaded.Format("2 Jan 2006")
	}
	return info, nil
}

// resolutionOptions collapses video formats to one option per height, highest
// first, keeping the largest known size for each.
func resolutionOptions(formats []ytgrab.Format) []FormatOption {
	byHeight := make(map[int]ytgrab.Format)
	for _, f := range formats {
		if f.IsAudio || f.Height <= 0 {
			continue
		}
		if cur, ok := byHeight[f.Height]; !ok || f.SizeBytes > cur.SizeBytes {
			byHeight[f.Height] = f
		}
	}
	heights := make([]int, 0, len(byHeight))
	for h := range byHeight {
		heights = append(heights, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))
	options := make([]FormatOption, 0, len(heights))
	for _, h := range heights {
		f := byHeight[h]
		options = append(options, FormatOption{
			Quality:   fmt.Sprintf("%dp", h),
			Label:     qualityLabel(h),
			Container: f.Container,
			Size:      ytgrab.FormatBytes(f.SizeBytes),
		})
	}
	return options
}

func audioOptions(formats []ytgrab.Format) []FormatOption {
	var audio []ytgrab.Format
	for _, f := range formats {
		if f.IsAudio {
			audio = append(audio, f)
		}
	}
	sort.Slice(audio, func(i, j int) bool { return audio[i].Bitrate > audio[j].Bitrate })
	options := make([]FormatOption, 0, len(audio))
	for _, f := range audio {
		options = append(options, FormatOption{
			Quality:   fmt.Sprintf("%dkbps", f.Bitrate/1000),
			Container: f.Container,
			Size:      ytgrab.FormatBytes(f.SizeBytes),
		})
	}
	return options
}

func qualityLabel(height int) string {
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "2K"
	case height >= 1080:
		return "Full HD"
	case height >= 720:
		return "HD"
	default:
		return ""
	}
}
