package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listProjects(c *gin.Context) {
	if s.projects == nil {
		s.writeError(c, ErrUnavailable)
		return
	}
	projects, err := s.projects.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (s *Server) saveProject(c *gin.Context) {
	if s.projects == nil {
		s.writeError(c, ErrUnavailable)
		return
	}
	name := c.Param("name")
	if err := s.projects.Save(c.Request.Context(), name, s.engine.Snapshot()); err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("Project saved", "project", name)
	c.JSON(http.StatusOK, MessageResponse{Message: "Project saved"})
}

func (s *Server) loadProject(c *gin.Context) {
	if s.projects == nil {
		s.writeError(c, ErrUnavailable)
		return
	}
	name := c.Param("name")
	snap, err := s.projects.Load(c.Request.Context(), name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.engine.Load(snap); err != nil {
		s.writeError(c, err)
		return
	}
	s.getTimeline(c)
}

func (s *Server) deleteProject(c *gin.Context) {
	if s.projects == nil {
		s.writeError(c, ErrUnavailable)
		return
	}
	if err := s.projects.Delete(c.Request.Context(), c.Param("name")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Project deleted"})
}
