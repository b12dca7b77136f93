package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/timeline-editor/internal/compositor"
	"github.com/jaki95/timeline-editor/internal/encoder"
	"github.com/jaki95/timeline-editor/internal/engine"
	"github.com/jaki95/timeline-editor/internal/export"
	"github.com/jaki95/timeline-editor/internal/job"
	"github.com/jaki95/timeline-editor/internal/media"
	"github.com/jaki95/timeline-editor/internal/project"
	"github.com/jaki95/timeline-editor/internal/storage"
	"github.com/jaki95/timeline-editor/internal/stream"
	"github.com/jaki95/timeline-editor/internal/timeline"
)

var ErrUnavailable = errors.New("service not configured")

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, timeline.ErrClipNotFound),
		errors.Is(err, timeline.ErrTrackNotFound),
		errors.Is(err, job.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, timeline.ErrTrackTypeMismatch),
		errors.Is(err, export.ErrExportInProgress),
		errors.Is(err, engine.ErrExporting),
		errors.Is(err, job.ErrInvalidState),
		errors.Is(err, timeline.ErrClipboardEmpty):
		return http.StatusConflict
	case errors.Is(err, media.ErrUnreadableMedia),
		errors.Is(err, encoder.ErrNoSupportedProfile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, compositor.ErrInvalidTarget),
		errors.Is(err, timeline.ErrInvalidClipState),
		errors.Is(err, stream.ErrInvalidOffer):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
