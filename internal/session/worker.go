package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/internal/cookies"
	"github.com/boobalan-831/youtube-downloader/util"
)

// run drives the session through its lifecycle. It is the only goroutine that
// writes a terminal status, so every exit path below funnels through exactly
// one finish* call.
func (s *Session) run() {
	defer func() {
		s.updates.Close()
		close(s.done)
		s.manager.sessionFinished(s)
	}()
	defer s.ctxCancel()

	s.update(func(st *state) { st.Status = StatusResolving })
	if s.cancelRequested.IsSet() {
		s.finishCancelled()
		return
	}

	opts := s.opts
	blob := s.cookieBlob
	if blob == "" {
		blob = s.manager.config.Cookies
	}
	cookieFile, cleanup, err := cookies.Scoped(blob)
	if err != nil {
		s.finishError(fmt.Errorf("failed to prepare cookies: %w", err))
		return
	}
	defer cleanup()
	opts.CookieFile = cookieFile

	resolved, err := s.manager.config.Resolver.Resolve(s.ctx, s.URL, opts)
	if err != nil {
		// s.ctx covers cancellation the event has not latched yet, such as
		// manager shutdown.
		if s.cancelRequested.IsSet() || s.ctx.Err() != nil {
			s.finishCancelled()
			return
		}
		s.finishError(err)
		return
	}

	title := resolved.Title
	if title == "" {
		title = s.MediaID
	}
	filename := util.Sanitize(title) + "." + resolved.Container
	finalPath := filepath.Join(s.manager.config.DownloadDir, filename)
	partPath := finalPath + ".part"

	s.update(func(st *state) {
		st.Status = StatusDownloading
		st.Title = title
		st.Provider = resolved.Provider
		st.OutputFilename = filename
		st.OutputPath = finalPath
	})
	if s.cancelRequested.IsSet() {
		s.finishCancelled()
		return
	}

	if err := s.download(resolved, partPath); err != nil {
		os.Remove(partPath)
		if s.cancelRequested.IsSet() || s.ctx.Err() != nil {
			s.finishCancelled()
			return
		}
		s.finishError(err)
		return
	}
	if s.cancelRequested.IsSet() {
		os.Remove(partPath)
		s.finishCancelled()
		return
	}

	s.update(func(st *state) { st.Status = StatusProcessing })
	if err := os.Rename(partPath, finalPath); err != nil {
		os.Remove(partPath)
		s.finishError(fmt.Errorf("failed to finalize output: %w", err))
		return
	}
	if s.wantSubtitles && resolved.Subtitles != nil {
		// Subtitles are best-effort; the media file is already on disk.
		if err := s.writeSubtitles(resolved, finalPath); err != nil {
			s.log().Warnw("subtitle download failed", "error", err)
		}
	}
	if s.cancelRequested.IsSet() {
		os.Remove(finalPath)
		s.finishCancelled()
		return
	}

	info, err := os.Stat(finalPath)
	if err != nil || info.Size() == 0 {
		os.Remove(finalPath)
		s.finishError(errors.New("output file missing after download"))
		return
	}
	s.update(func(st *state) {
		st.Status = StatusComplete
		st.Progress = 100
		st.BytesDownloaded = info.Size()
		st.BytesTotal = info.Size()
		st.SpeedBPS = 0
		st.ETASeconds = 0
	})
	s.log().Infow("download complete", "filename", filename, "size", info.Size())
}

// download transfers the media into partPath, preferring the provider's own
// transfer mechanism over a plain fetch of the direct URL.
func (s *Session) download(resolved *ytgrab.ResolvedStream, partPath string) error {
	progress := s.progressFunc()
	if resolved.Transfer != nil {
		return resolved.Transfer(s.ctx, partPath, progress)
	}
	if resolved.DirectURL == "" {
		return errors.New("resolved stream has no transfer method")
	}
	return s.manager.config.Fetcher.Fetch(s.ctx, resolved.DirectURL, partPath, progress)
}

// progressFunc converts cumulative byte counts into throttled state updates
// with speed and ETA estimates. Updates are rate-limited so slow subscribers
// see a steady trickle rather than a flood.
func (s *Session) progressFunc() ytgrab.ProgressFunc {
	interval := s.manager.config.ProgressInterval
	start := time.Now()
	var lastPublish time.Time
	lastBytes := int64(0)
	lastSample := start
	return func(downloaded, total int64) {
		now := time.Now()
		// The final update bypasses the throttle only when the total is
		// known; unknown-length transfers never reach downloaded == total.
		if !lastPublish.IsZero() && now.Sub(lastPublish) < interval && (total <= 0 || downloaded < total) {
			return
		}
		lastPublish = now

		var speed float64
		if elapsed := now.Sub(lastSample).Seconds(); elapsed > 0 {
			speed = float64(downloaded-lastBytes) / elapsed
		}
		lastBytes = downloaded
		lastSample = now

		s.update(func(st *state) {
			st.BytesDownloaded = downloaded
			st.BytesTotal = total
			st.SpeedBPS = speed
			if total > 0 {
				st.Progress = float64(downloaded) / float64(total) * 100
				if speed > 0 {
					st.ETASeconds = int(float64(total-downloaded) / speed)
				}
			}
		})
	}
}

func (s *Session) writeSubtitles(resolved *ytgrab.ResolvedStream, finalPath string) error {
	srt, err := resolved.Subtitles(s.ctx)
	if err != nil {
		return err
	}
	if srt == "" {
		return errors.New("empty transcript")
	}
	srtPath := strings.TrimSuffix(finalPath, filepath.Ext(finalPath)) + ".srt"
	return os.WriteFile(srtPath, []byte(srt), 0o664)
}

// finishCancelled resolves the cancel-vs-error race in favor of cancellation.
func (s *Session) finishCancelled() {
	s.update(func(st *state) {
		st.Status = StatusCancelled
		st.SpeedBPS = 0
		st.ETASeconds = 0
	})
	s.log().Info("download cancelled")
}

func (s *Session) finishError(err error) {
	s.update(func(st *state) {
		st.Status = StatusError
		st.Err = err.Error()
		st.SpeedBPS = 0
		st.ETASeconds = 0
	})
	s.log().Errorw("download failed", "error", err)
}
