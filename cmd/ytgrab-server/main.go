package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/async"
	"github.com/boobalan-831/youtube-downloader/internal/config"
	"github.com/boobalan-831/youtube-downloader/internal/httpapi"
	"github.com/boobalan-831/youtube-downloader/internal/session"
	"github.com/boobalan-831/youtube-downloader/provider/convapi"
	"github.com/boobalan-831/youtube-downloader/provider/mirror"
	"github.com/boobalan-831/youtube-downloader/provider/native"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "ytgrab-server",
		Usage: "video download service with provider fallback",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
		},
		Action: func(c *cli.Context) error {
			return run(ctx, c.String("config"))
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err := <-result:
		if err != nil {
			log.Fatal(err)
		}
	case <-ctx.Done():
		stop()
		if err := <-result; err != nil {
			log.Fatal(err)
		}
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	resolver, err := buildResolver(cfg.Providers)
	if err != nil {
		return err
	}
	zap.S().Infow("provider chain configured", "providers", resolver.Providers())

	manager, err := session.NewManager(session.Config{
		DownloadDir:      cfg.Download.Dir,
		Resolver:         resolver,
		Fetcher:          ytgrab.NewFetcher(),
		Cookies:          cfg.Providers.Cookies,
		HistorySize:      cfg.Download.HistorySize,
		RetireDelay:      cfg.Download.GetRetireDelay(),
		ProgressInterval: cfg.Download.GetProgressInterval(),
		ProgressGrace:    session.DefaultConfig.ProgressGrace,
	}, ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	server := httpapi.NewServer(httpapi.Config{
		BindAddr:     cfg.HTTP.BindAddr,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  cfg.HTTP.GetIdleTimeout(),
	}, manager)

	result := async.Run(server.Start)
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			zap.S().Warnw("shutdown incomplete", "error", err)
		}
		return <-result
	}
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func buildResolver(cfg config.ProvidersConfig) (*ytgrab.Resolver, error) {
	identities := make([]native.Identity, 0, len(cfg.Native.Identities))
	for _, name := range cfg.Native.Identities {
		id, ok := native.IdentityByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown client identity %q", name)
		}
		identities = append(identities, id)
	}

	adapters := []ytgrab.Adapter{native.New(identities...)}
	if cfg.Conversion.Endpoint != "" {
		adapters = append(adapters, convapi.New(cfg.Conversion.Endpoint, cfg.Conversion.APIKey))
	}
	if len(cfg.Mirror.Instances) > 0 {
		adapters = append(adapters, mirror.New(cfg.Mirror.Instances...))
	}
	return ytgrab.NewResolver(cfg.GetAttemptTimeout(), adapters...), nil
}
