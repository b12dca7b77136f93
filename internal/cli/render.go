package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jaki95/timeline-editor/internal/engine"
	"github.com/jaki95/timeline-editor/internal/export"
	"github.com/jaki95/timeline-editor/internal/job"
	"github.com/jaki95/timeline-editor/internal/progress"
	"github.com/jaki95/timeline-editor/internal/project"
	"github.com/jaki95/timeline-editor/internal/storage"
)

var projectFlag string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Export a saved project without a browser",
	Long:  "Loads a project from the project store and runs the export pipeline against a stepped clock, one tick per output frame.",
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&projectFlag, "project", "p", "", "Project name (required)")
	_ = renderCmd.MarkFlagRequired("project")
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx := cmd.Context()
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

	snap, err := projects.Load(ctx, projectFlag)
	if err != nil {
		return err
	}

	mock := clock.NewMock()
	mock.Set(time.Now())
	eng, err := engine.New(engineOptions(cfg, store, mock, true))
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	if err := eng.Load(snap); err != nil {
		return fmt.Errorf("failed to load project %s: %w", projectFlag, err)
	}

	status, err := renderOffline(ctx, eng, mock, cfg.Render.FrameRate, ansi.NewAnsiStdout())
	if err != nil {
		return err
	}
	fmt.Printf("\nExported %s to %s (%d bytes)\n", status.Artifact.Name, status.Artifact.Location, status.Artifact.Size)
	return nil
}

// renderOffline exports the engine's timeline by stepping clk one frame
// interval per tick, and returns the finished job.
func renderOffline(ctx context.Context, eng *engine.Engine, clk *clock.Mock, frameRate float64, out io.Writer) (*job.Status, error) {
	// creates the media elements so audio decoding can start
	eng.Tick()
	if err := waitAudio(ctx, eng); err != nil {
		return nil, err
	}

	duration := eng.Status().Duration
	if duration <= 0 {
		return nil, fmt.Errorf("timeline is empty")
	}
	total := int(math.Ceil(duration*frameRate - 1e-9))

	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan][1/2][reset] Recording frames..."),
	)
	listener := func(e progress.Event) {
		switch {
		case e.FrameDetails != nil:
			_ = bar.Set(e.FrameDetails.FramesCaptured)
		case e.Stage == progress.StageFinalizing:
			bar.Describe("[cyan][2/2][reset] Finalizing...")
		}
	}
	tracker := eng.Exporter().Tracker()
	tracker.AddListener(listener)
	defer tracker.RemoveListener(listener)

	started, err := eng.StartExport(ctx)
	if err != nil {
		return nil, err
	}

	// a step a hair over one frame keeps float drift from owing a frame late
	step := time.Duration(math.Ceil(float64(time.Second) / frameRate))
	for eng.Exporter().State() == export.StateRecording {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clk.Add(step)
		eng.Tick()
	}

	if err := eng.Exporter().Wait(ctx); err != nil {
		return nil, err
	}
	_ = bar.Finish()
	return eng.Exporter().Jobs().GetJob(started.ID)
}

func waitAudio(ctx context.Context, eng *engine.Engine) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !eng.AudioReady() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
