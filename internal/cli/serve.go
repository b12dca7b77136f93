package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/jaki95/timeline-editor/internal/engine"
	"github.com/jaki95/timeline-editor/internal/project"
	"github.com/jaki95/timeline-editor/internal/server"
	"github.com/jaki95/timeline-editor/internal/storage"
	"github.com/jaki95/timeline-editor/internal/stream"
)

var portFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editing engine and its HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Server port (overrides the configuration)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	projects, err := project.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open project store: %w", err)
	}
	defer projects.Close()

	clk := clock.New()
	eng, err := engine.New(engineOptions(cfg, store, clk, false))
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	broadcaster := stream.NewBroadcaster()
	monitor := stream.NewWebRTCHandler(broadcaster)
	defer monitor.Close()

	go broadcaster.Run(ctx, stream.Pump(ctx, clk, eng.Monitor()))
	go func() {
		if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Engine stopped", "error", err)
		}
	}()

	srv := server.New(cfg, server.Deps{
		Engine:   eng,
		Storage:  store,
		Projects: projects,
		Monitor:  monitor,
	})

	slog.Info("Starting timeline editor", "port", cfg.Server.Port, "storage", cfg.Storage.Type, "resolution", cfg.Render.Resolution)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	slog.Info("Shutting down")
	return nil
}
