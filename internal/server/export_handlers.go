package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/timeline-editor/internal/job"
)

func (s *Server) startExport(c *gin.Context) {
	status, err := s.engine.StartExport(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, status)
}

func (s *Server) listExports(c *gin.Context) {
	page, pageSize := pagination(c)
	c.JSON(http.StatusOK, s.engine.Exporter().Jobs().ListJobs(page, pageSize))
}

func (s *Server) getExport(c *gin.Context) {
	status, err := s.engine.Exporter().Jobs().GetJob(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// downloadExport streams a completed artifact back from storage
func (s *Server) downloadExport(c *gin.Context) {
	jobID := c.Param("id")
	status, err := s.engine.Exporter().Jobs().GetJob(jobID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if status.Status != job.StatusCompleted || status.Artifact == nil {
		s.writeError(c, fmt.Errorf("%w: export %s is %s", job.ErrInvalidState, jobID, status.Status))
		return
	}

	rc, err := s.storage.Open(c.Request.Context(), status.Artifact.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", status.Artifact.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", SanitizeFilename(status.Artifact.Name)))
	if status.Artifact.Size > 0 {
		c.Header("Content-Length", fmt.Sprint(status.Artifact.Size))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.logger.Error("Failed to stream artifact", "job", jobID, "artifact", status.Artifact.Name, "error", err)
	}
}
