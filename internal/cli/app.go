package cli

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jaki95/timeline-editor/config"
	"github.com/jaki95/timeline-editor/internal/compositor"
	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/encoder"
	"github.com/jaki95/timeline-editor/internal/engine"
	"github.com/jaki95/timeline-editor/internal/export"
	"github.com/jaki95/timeline-editor/internal/media"
	"github.com/jaki95/timeline-editor/internal/storage"
)

func tracksFromConfig(tracks []config.TrackConfig) []domain.Track {
	out := make([]domain.Track, 0, len(tracks))
	for _, t := range tracks {
		name := t.Name
		if name == "" {
			name = t.ID
		}
		out = append(out, domain.Track{ID: t.ID, Kind: domain.MediaKind(t.Kind), Name: name})
	}
	return out
}

func targetFromConfig(r config.RenderConfig) compositor.Target {
	target := compositor.Target{Mode: compositor.Mode(r.Resolution)}
	if target.Mode == compositor.ModeCustom {
		target.Width, target.Height = r.Width, r.Height
	}
	return target
}

// engineOptions wires the ffmpeg-backed media and encoder into an engine.
// Offline renders pass a mock clock and blocking decodes.
func engineOptions(cfg *config.Config, store storage.Storage, clk clock.Clock, offline bool) engine.Options {
	factory := &media.FFmpegFactory{
		FFmpegPath: cfg.Encoder.FFmpegPath,
		FrameRate:  cfg.Render.FrameRate,
		Clock:      clk,
		Blocking:   offline,
	}

	settle := time.Duration(cfg.Render.SettleMS) * time.Millisecond
	if offline {
		settle = 0
	}

	return engine.Options{
		Tracks:       tracksFromConfig(cfg.Tracks),
		Target:       targetFromConfig(cfg.Render),
		VideoFactory: factory,
		AudioFactory: factory,
		Prober:       media.NewFFprobe(cfg.Encoder.FFprobePath),
		Clock:        clk,
		TickRate:     cfg.Render.TickRate,
		Export: export.Options{
			Encoder:      encoder.NewFFmpeg(cfg.Encoder.FFmpegPath),
			Capabilities: &encoder.FFmpegCapabilities{Path: cfg.Encoder.FFmpegPath},
			Storage:      store,
			Clock:        clk,
			FrameRate:    cfg.Render.FrameRate,
			AudioBitrate: cfg.Encoder.AudioBitrate,
			Settle:       settle,
		},
	}
}
