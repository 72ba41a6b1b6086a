package ytgrab

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNoMediaID = errors.New("could not extract media ID")

// ExtractMediaID extracts the canonical media identifier from a URL.
//
// Allowed URL formats:
//	http(s?)://(www|m).youtube.com/watch?v={MEDIA_ID}
//	http(s?)://(www|m).youtube.com/(v|shorts|embed)/{MEDIA_ID}
//	http(s?)://youtu.be/{MEDIA_ID}
func ExtractMediaID(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	var id string
	switch strings.TrimPrefix(parsed.Hostname(), "www.") {
	case "youtube.com", "m.youtube.com":
		if p := strings.TrimPrefix(parsed.Path, "/"); strings.HasPrefix(p, "v/") ||
			strings.HasPrefix(p, "shorts/") || strings.HasPrefix(p, "embed/") {
			parts := strings.SplitN(p, "/", 2)
			id = strings.Trim(parts[1], "/")
		} else if parsed.Path == "/watch" || parsed.Path == "/details" {
			if parsed.Query().Has("v") {
				id = parsed.Query().Get("v")
			} else {
				return "", fmt.Errorf("%w: missing ?v= query parameter", ErrNoMediaID)
			}
		}
	case "youtu.be":
		id = strings.Trim(parsed.Path, "/")
	default:
		return "", fmt.Errorf("%w: unrecognised hostname %q", ErrNoMediaID, parsed.Hostname())
	}
	if id == "" {
		return "", ErrNoMediaID
	}
	return id, nil
}

// CanonicalURL is the long-form watch URL for a media ID.
func CanonicalURL(mediaID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", mediaID)
}
