package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/timeline-editor/config"
	"github.com/jaki95/timeline-editor/internal/engine"
	"github.com/jaki95/timeline-editor/internal/project"
	"github.com/jaki95/timeline-editor/internal/storage"
	"github.com/jaki95/timeline-editor/internal/stream"
)

// maxUploadSize bounds a single media import.
const maxUploadSize = 2 << 30

// Server exposes the editing engine over HTTP
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	engine   *engine.Engine
	storage  storage.Storage
	projects *project.SQLiteStore
	monitor  *stream.WebRTCHandler
	logger   *slog.Logger
}

// Deps are the services the handlers call into. Projects and Monitor may be
// nil, in which case their routes answer 503.
type Deps struct {
	Engine   *engine.Engine
	Storage  storage.Storage
	Projects *project.SQLiteStore
	Monitor  *stream.WebRTCHandler
}

// New creates a new HTTP server instance
func New(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		router:   gin.New(),
		engine:   deps.Engine,
		storage:  deps.Storage,
		projects: deps.Projects,
		monitor:  deps.Monitor,
		logger:   slog.Default().With("component", "server"),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.router.MaxMultipartMemory = 32 << 20
	s.setupRoutes(s.router)
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/health", s.healthCheck)

	api := router.Group("/api/v1")
	{
		api.GET("/timeline", s.getTimeline)
		api.GET("/status", s.getStatus)
		api.POST("/clips/import", s.importClip)
		api.POST("/clips/:id/move", s.moveClip)
		api.POST("/clips/:id/trim-start", s.trimStart)
		api.POST("/clips/:id/trim-end", s.trimEnd)
		api.POST("/clips/:id/split", s.splitClip)
		api.DELETE("/clips/:id", s.deleteClip)
		api.PUT("/selection", s.selectClip)
		api.POST("/clipboard/copy", s.copyClip)
		api.POST("/clipboard/paste", s.pasteClip)

		api.POST("/transport/play", s.play)
		api.POST("/transport/pause", s.pause)
		api.POST("/transport/stop", s.stop)
		api.POST("/transport/seek", s.seek)

		api.PUT("/resolution", s.setResolution)
		api.GET("/preview.png", s.preview)

		api.POST("/exports", s.startExport)
		api.GET("/exports", s.listExports)
		api.GET("/exports/:id", s.getExport)
		api.GET("/exports/:id/download", s.downloadExport)

		api.GET("/projects", s.listProjects)
		api.PUT("/projects/:name", s.saveProject)
		api.POST("/projects/:name/load", s.loadProject)
		api.DELETE("/projects/:name", s.deleteProject)

		api.POST("/monitor/offer", s.monitorOffer)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Start serves on the configured port until ctx is done
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "timeline-editor",
	})
}
