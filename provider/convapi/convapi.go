// Package convapi resolves media through a third-party conversion service
// that exchanges a page URL for a single direct media URL.
package convapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	ytgrab "github.com/boobalan-831/youtube-downloader"
)

var ErrNotConfigured = errors.New("no conversion endpoint configured")

type Adapter struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *zap.SugaredLogger
}

func New(endpoint, apiKey string) *Adapter {
	return &Adapter{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{},
		log:      zap.S().Named("provider.convapi"),
	}
}

func (a *Adapter) Name() ytgrab.ProviderName {
	return ytgrab.ProviderConversion
}

type conversionRequest struct {
	URL       string `json:"url"`
	Quality   string `json:"quality,omitempty"`
	AudioOnly bool   `json:"audio_only,omitempty"`
}

type conversionResponse struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	URL       string  `json:"url"`
	Container string  `json:"container"`
	Error     string  `json:"error"`
}

// Resolve issues one request to the conversion endpoint. The service yields
// no transfer progress of its own; the direct URL it returns is fetched by
// the Transport Fetcher, which drives progress instead.
func (a *Adapter) Resolve(ctx context.Context, rawURL string, opts ytgrab.ResolveOptions) (*ytgrab.ResolvedStream, error) {
	if a.endpoint == "" {
		return nil, ErrNotConfigured
	}
	if _, err := ytgrab.ExtractMediaID(rawURL); err != nil {
		return nil, err
	}

	payload := conversionRequest{
		URL:       rawURL,
		AudioOnly: opts.AudioOnly,
	}
	if opts.TargetHeight > 0 {
		payload.Quality = strconv.Itoa(opts.TargetHeight)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversion request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("conversion service returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var decoded conversionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("unparseable conversion response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("conversion service error: %s", decoded.Error)
	}
	if decoded.URL == "" {
		return nil, errors.New("conversion response missing direct URL")
	}

	container := decoded.Container
	if container == "" {
		if opts.AudioOnly {
			container = "m4a"
		} else {
			container = "mp4"
		}
	}
	return &ytgrab.ResolvedStream{
		Title:     decoded.Title,
		Duration:  time.Duration(decoded.Duration * float64(time.Second)),
		DirectURL: decoded.URL,
		Container: container,
	}, nil
}
