package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	ytgrab "github.com/boobalan-831/youtube-downloader"
)

func testResponse() videoResponse {
	return videoResponse{
		Title:         "mirrored video",
		Author:        "some channel",
		LengthSeconds: 300,
		ViewCount:     12345,
		Published:     1700000000,
		VideoThumbnails: []thumbnail{
			{URL: "https://img.example.com/small.jpg", Width: 120},
			{URL: "https://img.example.com/big.jpg", Width: 1280},
		},
		FormatStreams: []mirrorFormat{
			{URL: "https://cdn.example.com/360.mp4", Itag: "18", Type: `video/mp4; codecs="avc1"`, Container: "mp4", Resolution: "360p", Bitrate: "500000"},
			{URL: "https://cdn.example.com/720.mp4", Itag: "22", Type: `video/mp4; codecs="avc1"`, Container: "mp4", Resolution: "720p", Bitrate: "1500000"},
		},
		AdaptiveFormats: []mirrorFormat{
			{URL: "https://cdn.example.com/audio-low.m4a", Itag: "139", Type: `audio/mp4; codecs="mp4a"`, Container: "m4a", Bitrate: "48000"},
			{URL: "https://cdn.example.com/audio-high.m4a", Itag: "140", Type: `audio/mp4; codecs="mp4a"`, Container: "m4a", Bitrate: "128000"},
			{URL: "https://cdn.example.com/1080.mp4", Itag: "137", Type: `video/mp4; codecs="avc1"`, Container: "mp4", Resolution: "1080p", Bitrate: "3000000"},
		},
	}
}

func mirrorServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestAdapter_Resolve(t *testing.T) {
	assert := assert_.New(t)

	server := mirrorServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/v1/videos/abc123", r.URL.Path)
		json.NewEncoder(w).Encode(testResponse())
	})

	resolved, err := New(server.URL).Resolve(context.Background(), "https://youtu.be/abc123", ytgrab.ResolveOptions{})
	assert.Nil(err)
	assert.Equal("mirrored video", resolved.Title)
	assert.Equal("some channel", resolved.Channel)
	assert.Equal("https://img.example.com/big.jpg", resolved.Thumbnail)
	assert.Equal(5*time.Minute, resolved.Duration)
	assert.Equal(int64(12345), resolved.Views)
	// Muxed streams are preferred for combined audio/video
	assert.Equal("https://cdn.example.com/720.mp4", resolved.DirectURL)
	assert.Equal("mp4", resolved.Container)
	assert.Len(resolved.Formats, 5)
}

func TestAdapter_Resolve_AudioPicksMaxBitrate(t *testing.T) {
	assert := assert_.New(t)

	server := mirrorServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testResponse())
	})

	resolved, err := New(server.URL).Resolve(context.Background(), "https://youtu.be/abc123", ytgrab.ResolveOptions{AudioOnly: true})
	assert.Nil(err)
	assert.Equal("https://cdn.example.com/audio-high.m4a", resolved.DirectURL,
		"audio selection must compare numeric bitrates, not list order")
}

func TestAdapter_Resolve_TargetHeight(t *testing.T) {
	assert := assert_.New(t)

	server := mirrorServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testResponse())
	})

	resolved, err := New(server.URL).Resolve(context.Background(), "https://youtu.be/abc123", ytgrab.ResolveOptions{TargetHeight: 480})
	assert.Nil(err)
	assert.Equal("https://cdn.example.com/360.mp4", resolved.DirectURL)
}

func TestAdapter_Resolve_SecondInstance(t *testing.T) {
	assert := assert_.New(t)

	bad := mirrorServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	good := mirrorServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testResponse())
	})

	resolved, err := New(bad.URL, good.URL).Resolve(context.Background(), "https://youtu.be/abc123", ytgrab.ResolveOptions{})
	assert.Nil(err)
	assert.Equal("mirrored video", resolved.Title)
}

func TestAdapter_Resolve_AllInstancesFail(t *testing.T) {
	assert := assert_.New(t)

	first := mirrorServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	second := mirrorServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	_, err := New(first.URL, second.URL).Resolve(context.Background(), "https://youtu.be/abc123", ytgrab.ResolveOptions{})
	assert.NotNil(err)
	assert.Contains(err.Error(), first.URL)
	assert.Contains(err.Error(), second.URL)
}

func TestAdapter_Resolve_NoInstances(t *testing.T) {
	assert := assert_.New(t)
	_, err := New().Resolve(context.Background(), "https://youtu.be/abc123", ytgrab.ResolveOptions{})
	assert.ErrorIs(err, ErrNoInstances)
}

func TestParseHelpers(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal(720, parseResolution("720p"))
	assert.Equal(0, parseResolution(""))
	assert.Equal(0, parseResolution("audio"))
	assert.Equal(128000, parseBitrate("128000"))
	assert.Equal(0, parseBitrate("n/a"))
}
