package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/timeline-editor/internal/compositor"
	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/timeline"
	"github.com/jaki95/timeline-editor/internal/transport"
)

func (s *Server) getTimeline(c *gin.Context) {
	snap := s.engine.Snapshot()
	c.JSON(http.StatusOK, TimelineResponse{
		Tracks: snap.Tracks,
		Clips:  snap.Clips,
		Status: s.engine.Status(),
	})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status())
}

// importClip accepts a multipart upload with fields file, track, and
// optionally kind and name. A missing kind is taken from the track.
func (s *Server) importClip(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}
	trackID := c.PostForm("track")
	if trackID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "track is required"})
		return
	}

	kind := domain.MediaKind(c.PostForm("kind"))
	if kind == "" {
		kind, err = s.trackKind(trackID)
		if err != nil {
			s.writeError(c, err)
			return
		}
	}
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown media kind %q", kind)})
		return
	}

	filename := SanitizeFilename(header.Filename)
	path, err := s.storage.ImportPath(filename)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := c.SaveUploadedFile(header, path); err != nil {
		os.RemoveAll(filepath.Dir(path))
		s.writeError(c, fmt.Errorf("failed to store upload: %w", err))
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = filename
	}
	clip, err := s.engine.Import(c.Request.Context(), path, name, trackID, kind)
	if err != nil {
		os.RemoveAll(filepath.Dir(path))
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, clip)
}

func (s *Server) trackKind(trackID string) (domain.MediaKind, error) {
	for _, t := range s.engine.Snapshot().Tracks {
		if t.ID == trackID {
			return t.Kind, nil
		}
	}
	return "", fmt.Errorf("%w: %s", timeline.ErrTrackNotFound, trackID)
}

func (s *Server) moveClip(c *gin.Context) {
	s.applyDelta(c, s.engine.Move)
}

func (s *Server) trimStart(c *gin.Context) {
	s.applyDelta(c, s.engine.TrimStart)
}

func (s *Server) trimEnd(c *gin.Context) {
	s.applyDelta(c, s.engine.TrimEnd)
}

func (s *Server) applyDelta(c *gin.Context, fn func(string, float64) (domain.Clip, error)) {
	var req DeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	clip, err := fn(c.Param("id"), *req.Delta)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, clip)
}

func (s *Server) splitClip(c *gin.Context) {
	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	res, err := s.engine.Split(c.Param("id"), *req.At)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, SplitResponse{})
		return
	}
	c.JSON(http.StatusOK, SplitResponse{Left: &res.Left, Right: &res.Right})
}

func (s *Server) deleteClip(c *gin.Context) {
	if err := s.engine.Delete(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Clip deleted"})
}

func (s *Server) selectClip(c *gin.Context) {
	var req ClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.engine.Select(req.ClipID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) copyClip(c *gin.Context) {
	var req ClipRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ClipID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "clipId is required"})
		return
	}
	if err := s.engine.Copy(req.ClipID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Clip copied"})
}

func (s *Server) pasteClip(c *gin.Context) {
	clip, err := s.engine.Paste()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, clip)
}

func (s *Server) setResolution(c *gin.Context) {
	var target compositor.Target
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.engine.SetTarget(target); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Status())
}

func (s *Server) preview(c *gin.Context) {
	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "no-store")
	if err := s.engine.WritePreview(c.Writer); err != nil {
		s.logger.Error("Failed to encode preview", "error", err)
	}
}

// play, pause, stop and seek answer with the transport state after the call.

func (s *Server) play(c *gin.Context) {
	s.transportResult(c, s.engine.Play)
}

func (s *Server) pause(c *gin.Context) {
	s.transportResult(c, s.engine.Pause)
}

func (s *Server) stop(c *gin.Context) {
	s.transportResult(c, s.engine.Stop)
}

func (s *Server) seek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	s.transportResult(c, func() (transport.Status, error) { return s.engine.Seek(*req.Position) })
}

func (s *Server) transportResult(c *gin.Context, fn func() (transport.Status, error)) {
	status, err := fn()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
