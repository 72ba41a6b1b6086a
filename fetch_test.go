package ytgrab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestFetcher_Fetch(t *testing.T) {
	assert := assert_.New(t)

	payload := []byte("0123456789abcdef")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dst := filepath.Join(t.TempDir(), "sub", "out.bin")
	f := NewFetcher()
	f.ChunkSize = 4

	var lastDownloaded, lastTotal int64
	var updates int
	err := f.Fetch(context.Background(), server.URL, dst, func(downloaded, total int64) {
		lastDownloaded = downloaded
		lastTotal = total
		updates++
	})
	assert.Nil(err)

	written, err := os.ReadFile(dst)
	assert.Nil(err)
	assert.Equal(payload, written)
	assert.Equal(int64(len(payload)), lastDownloaded)
	assert.Equal(int64(len(payload)), lastTotal)
	assert.GreaterOrEqual(updates, 2, "small chunk size should produce multiple updates")
}

func TestFetcher_Fetch_BadStatus(t *testing.T) {
	assert := assert_.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dst := filepath.Join(t.TempDir(), "out.bin")
	err := NewFetcher().Fetch(context.Background(), server.URL, dst, nil)
	assert.NotNil(err)
	assert.Contains(err.Error(), "unexpected status")
}

func TestFetcher_Fetch_Cancelled(t *testing.T) {
	assert := assert_.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := filepath.Join(t.TempDir(), "out.bin")
	err := NewFetcher().Fetch(ctx, server.URL, dst, nil)
	assert.ErrorIs(err, context.Canceled)
}
