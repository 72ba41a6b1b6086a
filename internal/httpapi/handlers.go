package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boobalan-831/youtube-downloader/internal/session"
	"github.com/boobalan-831/youtube-downloader/util"
)

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleInfo previews a media URL through the provider chain without
// starting a download.
func (s *Server) handleInfo(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	info, err := s.manager.GetInfo(c.Request.Context(), req.URL)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleDownload(c *gin.Context) {
	var req session.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sess, err := s.manager.Create(req)
	if err != nil {
		s.renderError(c, err)
		return
	}
	snap := sess.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"status":     snap.Status,
	})
}

// handleProgress streams session snapshots as server-sent events until the
// terminal snapshot or client disconnect.
func (s *Server) handleProgress(c *gin.Context) {
	id := session.ID(c.Param("id"))
	stream, err := s.manager.Stream(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for snap := range stream {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		c.Writer.Flush()
	}
}

func (s *Server) handleCancel(c *gin.Context) {
	id := session.ID(c.Param("id"))
	if err := s.manager.Cancel(id); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "status": "cancelling"})
}

// handleServe sends the completed file as an attachment.
func (s *Server) handleServe(c *gin.Context) {
	id := session.ID(c.Param("id"))
	path, err := s.manager.OutputPath(id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file no longer exists"})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

func (s *Server) handleActive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.manager.Active()})
}

func (s *Server) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": s.manager.History()})
}

func (s *Server) handleClearHistory(c *gin.Context) {
	s.manager.ClearHistory()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// handleThumbnail proxies the media thumbnail as a downloadable attachment.
func (s *Server) handleThumbnail(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	info, err := s.manager.GetInfo(c.Request.Context(), req.URL)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if info.Thumbnail == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no thumbnail available"})
		return
	}

	resp, err := s.fetcher.Open(c.Request.Context(), info.Thumbnail)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("thumbnail fetch failed: %v", err)})
		return
	}
	defer resp.Body.Close()

	filename := util.Sanitize(info.Title) + "_thumbnail.jpg"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Header("Content-Type", ct)
	}
	if resp.ContentLength > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", resp.ContentLength))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		s.log.Warnw("thumbnail stream interrupted", "error", err)
	}
}
