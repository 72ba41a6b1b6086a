package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/async"
	"github.com/boobalan-831/youtube-downloader/internal/session"
	"github.com/boobalan-831/youtube-downloader/provider/mirror"
	"github.com/boobalan-831/youtube-downloader/provider/native"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "ytgrab",
		Usage: "download a single video",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded video to `DIR`",
			},
			&cli.IntFlag{
				Name:  "quality",
				Usage: "maximum video `HEIGHT` (e.g. 1080); 0 for best",
			},
			&cli.BoolFlag{
				Name:  "audio-only",
				Usage: "download audio only",
			},
			&cli.BoolFlag{
				Name:  "subtitles",
				Usage: "also save subtitles when available",
			},
			&cli.StringSliceFlag{
				Name:  "mirror",
				Usage: "mirror instance `URL` to fall back to (repeatable)",
			},
		},
		Action: func(c *cli.Context) error {
			for _, source := range c.Args().Slice() {
				if err := download(ctx, c, source); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		err = <-result
		if err != nil {
			logger.Fatal(err.Error())
		}
	}
}

func download(ctx context.Context, c *cli.Context, source string) error {
	logger := zap.S()
	target := c.String("target")
	logger.Infof("Downloading from %s into %s", source, target)

	adapters := []ytgrab.Adapter{native.New()}
	if instances := c.StringSlice("mirror"); len(instances) > 0 {
		adapters = append(adapters, mirror.New(instances...))
	}

	cfg := session.DefaultConfig
	cfg.DownloadDir = target
	cfg.Resolver = ytgrab.NewResolver(2*time.Minute, adapters...)
	cfg.Cookies = os.Getenv("YOUTUBE_COOKIES")
	manager, err := session.NewManager(cfg, ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	sess, err := manager.Create(session.CreateRequest{
		URL:       source,
		Quality:   c.Int("quality"),
		AudioOnly: c.Bool("audio-only"),
		Subtitles: c.Bool("subtitles"),
	})
	if err != nil {
		return err
	}

	stream, err := manager.Stream(ctx, sess.ID)
	if err != nil {
		return err
	}

	bar := progressbar.Default(100, "downloading")
	var final session.Snapshot
	for snap := range stream {
		_ = bar.Set(int(snap.Progress))
		final = snap
	}
	_ = bar.Finish()

	switch final.Status {
	case session.StatusComplete:
		logger.Infof("Download complete: %s", final.Filename)
		return nil
	case session.StatusCancelled:
		logger.Info("Download cancelled")
		return nil
	default:
		return fmt.Errorf("download failed: %s", final.Error)
	}
}
