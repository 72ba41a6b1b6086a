package ytgrab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const DefaultChunkSize = 64 * 1024

// Fetcher performs streamed GETs against resolved direct media URLs, writing
// the body to disk chunk by chunk and reporting cumulative byte counts.
type Fetcher struct {
	Client    *http.Client
	ChunkSize int
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:    &http.Client{},
		ChunkSize: DefaultChunkSize,
	}
}

// Open issues the streamed GET and hands the caller the response, for
// consumers that write somewhere other than disk. The caller owns the body.
func (f *Fetcher) Open(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch failed: unexpected status %s", resp.Status)
	}
	return resp, nil
}

// Fetch downloads url to dst. The transfer aborts between chunks as soon as
// ctx is cancelled, returning ctx.Err() wrapped in the transfer error.
func (f *Fetcher) Fetch(ctx context.Context, url string, dst string, progress ProgressFunc) error {
	resp, err := f.Open(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

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

	chunkSize := f.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	reader := &readerContext{ctx: ctx, r: resp.Body}
	buf := make([]byte, chunkSize)
	var downloaded int64
	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write chunk: %w", werr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("transfer aborted: %w", rerr)
		}
	}
	return nil
}

// A context-aware io.Reader wrapper: each Read checks for cancellation first,
// so a blocking copy loop observes ctx within one chunk.
type readerContext struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerContext) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
