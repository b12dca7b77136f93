// Package engine is the scheduler. One tick advances the transport and
// brings the video elements, the compositor, the mixer and any running
// export in line with the new position, all under one lock so every
// subsystem observes the same position.
package engine

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jaki95/timeline-editor/internal/compositor"
	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/export"
	"github.com/jaki95/timeline-editor/internal/media"
	"github.com/jaki95/timeline-editor/internal/mixer"
	"github.com/jaki95/timeline-editor/internal/timeline"
	"github.com/jaki95/timeline-editor/internal/transport"
)

// ErrExporting is returned for controls that are locked while an export runs.
var ErrExporting = errors.New("transport is locked by a running export")

// Options configures an Engine.
type Options struct {
	Tracks       []domain.Track
	Target       compositor.Target
	VideoFactory media.Factory
	AudioFactory media.Factory
	Prober       media.Prober
	Clock        clock.Clock
	TickRate     float64
	Export       export.Options
}

// Status is a point-in-time view of the engine.
type Status struct {
	Transport transport.Status  `json:"transport"`
	Duration  float64           `json:"duration"`
	Version   uint64            `json:"version"`
	Selected  string            `json:"selected,omitempty"`
	Target    compositor.Target `json:"target"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Export    string            `json:"export"`
}

// Engine owns the timeline and everything that plays it.
type Engine struct {
	mu        sync.Mutex
	clock     clock.Clock
	tickRate  float64
	model     *timeline.Model
	editor    *timeline.Editor
	transport *transport.Transport
	video     *media.Registry
	mixer     *mixer.Mixer
	comp      *compositor.Compositor
	exporter  *export.Pipeline
	prober    media.Prober

	last      time.Time
	dirty     bool
	lastFrame image.Image
	logger    *slog.Logger
}

// New creates an engine stopped at zero with an empty timeline.
func New(opts Options) (*Engine, error) {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if len(opts.Tracks) == 0 {
		opts.Tracks = timeline.DefaultTracks()
	}
	if opts.Target.Mode == "" {
		opts.Target.Mode = compositor.Mode720p
	}

	comp, err := compositor.New(opts.Target)
	if err != nil {
		return nil, err
	}

	model := timeline.NewModel(opts.Tracks)
	e := &Engine{
		clock:     opts.Clock,
		tickRate:  opts.TickRate,
		model:     model,
		editor:    timeline.NewEditor(model, timeline.NewSession()),
		transport: transport.New(),
		video:     media.NewRegistry(domain.KindVideo, opts.VideoFactory),
		mixer:     mixer.New(opts.AudioFactory),
		comp:      comp,
		prober:    opts.Prober,
		last:      opts.Clock.Now(),
		dirty:     true,
		logger:    slog.Default().With("component", "engine"),
	}
	e.video.OnCreate = func(domain.Clip, media.Element) { e.dirty = true }
	e.exporter = export.New(e, opts.Export)
	return e, nil
}

// Run ticks at the configured rate until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / e.tickRate)
	ticker := e.clock.Ticker(interval)
	defer ticker.Stop()

	e.logger.Info("Engine running", "tick_rate", e.tickRate)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick applies one scheduler step.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	elapsed := now.Sub(e.last).Seconds()
	e.last = now

	duration := e.model.Duration()
	event := e.transport.Advance(elapsed, duration)
	if event == transport.EventLooped {
		e.logger.Debug("Reached end of timeline, rewinding")
	}

	clips := e.model.Clips()
	e.reconcile(clips)

	position := e.transport.Position()
	playing := e.transport.Playing()

	frame := e.syncVideo(clips, position, playing)
	if playing || event != transport.EventNone || e.dirty || frame != e.lastFrame {
		e.comp.Render(clips, frame)
		e.lastFrame = frame
		e.dirty = false
	}

	e.mixer.Sync(clips, position, playing)

	if e.transport.Exporting() {
		e.exporter.Capture(position, duration, e.comp, e.mixer.Capture())
		if event == transport.EventEnded {
			e.exporter.Finish()
		}
	}
}

func (e *Engine) reconcile(clips []domain.Clip) {
	version := e.model.Version()
	e.video.Reconcile(version, clips)
	e.mixer.Reconcile(version, clips)
}

// syncVideo drives the active video element and parks the rest, returning
// the frame to draw.
func (e *Engine) syncVideo(clips []domain.Clip, position float64, playing bool) image.Image {
	active, ok := transport.ActiveVideo(clips, position)

	e.video.Each(func(id string, el media.Element) {
		if ok && id == active.ID {
			return
		}
		if !el.Paused() {
			el.Pause()
		}
	})
	if !ok {
		return nil
	}

	el, found := e.video.Get(active.ID)
	if !found {
		return nil
	}
	transport.Synchronize(el, active.LocalTime(position), playing)

	ve, isVideo := el.(media.VideoElement)
	if !isVideo {
		return nil
	}
	return ve.Frame()
}

// Status returns the current engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, h := e.comp.Size()
	return Status{
		Transport: e.transport.Status(),
		Duration:  e.model.Duration(),
		Version:   e.model.Version(),
		Selected:  e.editor.Session().Selected(),
		Target:    e.comp.Target(),
		Width:     w,
		Height:    h,
		Export:    e.exporter.State().String(),
	}
}

// Snapshot copies the tracks and clips.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Snapshot()
}

// Load replaces the clip set with a stored snapshot and restores the stored
// track flags. Stored tracks must match the engine's track set.
func (e *Engine) Load(snap domain.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transport.Exporting() {
		return ErrExporting
	}
	if err := e.model.Restore(snap); err != nil {
		return err
	}
	e.editor.Session().ClearSelection()
	e.transport.Stop()
	e.dirty = true
	e.logger.Info("Loaded timeline", "clips", len(snap.Clips))
	return nil
}

// SetTarget changes the output resolution.
func (e *Engine) SetTarget(target compositor.Target) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transport.Exporting() {
		return ErrExporting
	}
	if err := e.comp.SetTarget(target); err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// WritePreview encodes the current surface as PNG.
func (e *Engine) WritePreview(w io.Writer) error {
	return e.comp.EncodePNG(w)
}

// Monitor returns the audible mix bus.
func (e *Engine) Monitor() *mixer.Bus {
	return e.mixer.Monitor()
}

// Exporter returns the export pipeline.
func (e *Engine) Exporter() *export.Pipeline {
	return e.exporter
}

// AudioReady reports whether every audio element has finished decoding.
// Elements whose decode failed count as settled and play silence.
func (e *Engine) AudioReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.model.Clips() {
		if c.Kind != domain.KindAudio {
			continue
		}
		ch, ok := e.mixer.Channel(c.ID)
		if !ok || ch.Element().Ready() {
			continue
		}
		if f, failed := ch.Element().(interface{ Err() error }); failed && f.Err() != nil {
			continue
		}
		return false
	}
	return true
}

// Close releases every media element.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.video.Close()
	e.mixer.Close()
}
