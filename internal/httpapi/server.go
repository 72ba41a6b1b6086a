// Package httpapi exposes the download manager over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ytgrab "github.com/boobalan-831/youtube-downloader"
	"github.com/boobalan-831/youtube-downloader/internal/session"
)

type Config struct {
	BindAddr     string
	ReadTimeout  time.Duration
	// WriteTimeout of zero is intentional: progress streams are open-ended.
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Fetcher serves proxied byte streams such as thumbnails. Defaults to a
	// plain fetcher.
	Fetcher *ytgrab.Fetcher
}

type Server struct {
	config  Config
	manager *session.Manager
	fetcher *ytgrab.Fetcher
	server  *http.Server
	engine  *gin.Engine
	log     *zap.SugaredLogger
}

func NewServer(config Config, manager *session.Manager) *Server {
	if config.Fetcher == nil {
		config.Fetcher = ytgrab.NewFetcher()
	}
	s := &Server{
		config:  config,
		manager: manager,
		fetcher: config.Fetcher,
		log:     zap.S().Named("httpapi"),
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.loggingMiddleware())

	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	api.POST("/info", s.handleInfo)
	api.POST("/download", s.handleDownload)
	api.GET("/progress/:id", s.handleProgress)
	api.POST("/cancel/:id", s.handleCancel)
	api.GET("/serve/:id", s.handleServe)
	api.GET("/active", s.handleActive)
	api.GET("/history", s.handleHistory)
	api.POST("/history/clear", s.handleClearHistory)
	api.POST("/thumbnail", s.handleThumbnail)

	s.server = &http.Server{
		Addr:         config.BindAddr,
		Handler:      s.engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Start runs the server until Stop is called or listening fails.
func (s *Server) Start() error {
	s.log.Infow("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// renderError maps domain errors onto HTTP status codes.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
