package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/internal/session"
)

type stubAdapter struct {
	thumbnail string
}

func (stubAdapter) Name() ytgrab.ProviderName { return "stub" }

func (a stubAdapter) Resolve(ctx context.Context, url string, opts ytgrab.ResolveOptions) (*ytgrab.ResolvedStream, error) {
	return &ytgrab.ResolvedStream{
		Title:     "test video",
		Channel:   "test channel",
		Thumbnail: a.thumbnail,
		Duration:  2 * time.Minute,
		Views:     1000,
		Container: "mp4",
		Formats: []ytgrab.Format{
			{ID: "22", Height: 720, Container: "mp4", Bitrate: 1_500_000, SizeBytes: 1 << 20},
			{ID: "140", Container: "m4a", Bitrate: 128_000, IsAudio: true},
		},
		Transfer: func(ctx context.Context, dst string, progress ytgrab.ProgressFunc) error {
			return os.WriteFile(dst, []byte("media"), 0o664)
		},
	}, nil
}

func newTestServer(t *testing.T) *Server {
	return newTestServerWith(t, stubAdapter{})
}

func newTestServerWith(t *testing.T, adapter ytgrab.Adapter) *Server {
	t.Helper()
	cfg := session.DefaultConfig
	cfg.DownloadDir = t.TempDir()
	cfg.Resolver = ytgrab.NewResolver(5*time.Second, adapter)
	cfg.ProgressGrace = 100 * time.Millisecond
	manager, err := session.NewManager(cfg, context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(manager.Close)
	return NewServer(Config{BindAddr: "127.0.0.1:0"}, manager)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(http.StatusOK, w.Code)
	assert.Contains(w.Body.String(), `"status":"ok"`)
}

func TestHandleInfo(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/info", `{"url":"https://youtu.be/abc123"}`)
	assert.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(body, `"title":"test video"`)
	assert.Contains(body, `"duration":"02:00"`)
	assert.Contains(body, `"quality":"720p"`)
	assert.Contains(body, `"label":"HD"`)

	w = doRequest(s, http.MethodPost, "/api/info", `{}`)
	assert.Equal(http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodPost, "/api/info", `{"url":"https://vimeo.com/123"}`)
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestHandleDownload(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc123"}`)
	assert.Equal(http.StatusOK, w.Code)
	assert.Contains(w.Body.String(), "session_id")

	w = doRequest(s, http.MethodPost, "/api/download", `not json`)
	assert.Equal(http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodPost, "/api/download", `{"url":""}`)
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestHandleCancel_NotFound(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/cancel/nope", "")
	assert.Equal(http.StatusNotFound, w.Code)
}

func TestHandleServe_NotFound(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/serve/nope", "")
	assert.Equal(http.StatusNotFound, w.Code)
}

func TestHandleActiveAndHistory(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/active", "")
	assert.Equal(http.StatusOK, w.Code)

	w = doRequest(s, http.MethodGet, "/api/history", "")
	assert.Equal(http.StatusOK, w.Code)

	w = doRequest(s, http.MethodPost, "/api/history/clear", "")
	assert.Equal(http.StatusOK, w.Code)
	assert.Contains(w.Body.String(), `"cleared":true`)
}

func TestHandleProgress_StreamsToTerminal(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc123"}`)
	assert.Equal(http.StatusOK, w.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	assert.Nil(json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(created.SessionID)

	w = doRequest(s, http.MethodGet, "/api/progress/"+created.SessionID, "")
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(body, "data: ")
	assert.Contains(body, `"status":"complete"`)
}

func TestHandleThumbnail(t *testing.T) {
	assert := assert_.New(t)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg bytes"))
	}))
	defer origin.Close()

	s := newTestServerWith(t, stubAdapter{thumbnail: origin.URL})

	w := doRequest(s, http.MethodPost, "/api/thumbnail", `{"url":"https://youtu.be/abc123"}`)
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("jpeg bytes", w.Body.String())
	assert.Equal("image/jpeg", w.Header().Get("Content-Type"))
	assert.Contains(w.Header().Get("Content-Disposition"), "test video_thumbnail.jpg")
}

func TestHandleThumbnail_None(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/thumbnail", `{"url":"https://youtu.be/abc123"}`)
	assert.Equal(http.StatusNotFound, w.Code)
}

func TestHandleThumbnail_UpstreamError(t *testing.T) {
	assert := assert_.New(t)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer origin.Close()

	s := newTestServerWith(t, stubAdapter{thumbnail: origin.URL})

	w := doRequest(s, http.MethodPost, "/api/thumbnail", `{"url":"https://youtu.be/abc123"}`)
	assert.Equal(http.StatusBadGateway, w.Code)
}

func TestHandleProgress_UnknownSession(t *testing.T) {
	assert := assert_.New(t)
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/progress/nope", "")
	assert.Equal(http.StatusNotFound, w.Code)
}
