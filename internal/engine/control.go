package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/export"
	"github.com/jaki95/timeline-editor/internal/job"
	"github.com/jaki95/timeline-editor/internal/timeline"
	"github.com/jaki95/timeline-editor/internal/transport"
)

// Play starts playback. Rejected while exporting; the export drives the
// transport itself.
func (e *Engine) Play() (transport.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transport.Exporting() {
		return e.transport.Status(), ErrExporting
	}
	if e.transport.Play() {
		e.last = e.clock.Now()
	}
	return e.transport.Status(), nil
}

// Pause holds the playhead. Rejected while exporting.
func (e *Engine) Pause() (transport.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.transport.Pause() {
		return e.transport.Status(), ErrExporting
	}
	e.dirty = true
	return e.transport.Status(), nil
}

// Stop halts playback and rewinds to zero. Rejected while exporting.
func (e *Engine) Stop() (transport.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.transport.Stop() {
		return e.transport.Status(), ErrExporting
	}
	e.dirty = true
	return e.transport.Status(), nil
}

// Seek moves the playhead, clamped to the timeline. Rejected while exporting.
func (e *Engine) Seek(position float64) (transport.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.transport.Seek(position, e.model.Duration()) {
		return e.transport.Status(), ErrExporting
	}
	e.dirty = true
	return e.transport.Status(), nil
}

// Import probes a media file and places it on a track. The probe runs
// without holding the engine lock; the insertion point is computed from the
// timeline as it is when the probe resolves.
func (e *Engine) Import(ctx context.Context, path, name, trackID string, kind domain.MediaKind) (domain.Clip, error) {
	e.mu.Lock()
	track, ok := e.model.Track(trackID)
	e.mu.Unlock()
	if !ok {
		return domain.Clip{}, fmt.Errorf("%w: %s", timeline.ErrTrackNotFound, trackID)
	}
	if track.Kind != kind {
		return domain.Clip{}, fmt.Errorf("%w: %s clip on %s track %s", timeline.ErrTrackTypeMismatch, kind, track.Kind, trackID)
	}
	if name == "" {
		name = filepath.Base(path)
	}

	info, err := e.prober.Probe(ctx, path, kind)
	if err != nil {
		e.logger.Warn("Import failed", "path", path, "track", trackID, "error", err)
		return domain.Clip{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	clip, err := e.editor.AddClip(trackID, kind, path, name, info)
	if err != nil {
		return domain.Clip{}, err
	}
	e.dirty = true
	e.logger.Info("Imported clip", "clip", clip.ID, "track", trackID, "start", clip.Start, "duration", clip.Duration)
	return clip, nil
}

// Move shifts a clip along the timeline.
func (e *Engine) Move(clipID string, delta float64) (domain.Clip, error) {
	return e.edit(func(ed *timeline.Editor) (domain.Clip, error) { return ed.Move(clipID, delta) })
}

// TrimStart moves a clip's leading edge.
func (e *Engine) TrimStart(clipID string, delta float64) (domain.Clip, error) {
	return e.edit(func(ed *timeline.Editor) (domain.Clip, error) { return ed.TrimStart(clipID, delta) })
}

// TrimEnd moves a clip's trailing edge.
func (e *Engine) TrimEnd(clipID string, delta float64) (domain.Clip, error) {
	return e.edit(func(ed *timeline.Editor) (domain.Clip, error) { return ed.TrimEnd(clipID, delta) })
}

// Split cuts a clip at a timeline position. A nil result means the position
// was inside the edge guard band and nothing changed.
func (e *Engine) Split(clipID string, at float64) (*timeline.SplitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, err := e.editor.Split(clipID, at)
	if err == nil && res != nil {
		e.dirty = true
	}
	return res, err
}

// Delete removes a clip.
func (e *Engine) Delete(clipID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editor.Delete(clipID); err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// Select sets the selection. An empty id clears it.
func (e *Engine) Select(clipID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editor.Select(clipID)
}

// Copy puts a clip on the clipboard.
func (e *Engine) Copy(clipID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editor.Copy(clipID)
}

// Paste inserts the clipboard at the end of the selection or at the playhead.
func (e *Engine) Paste() (domain.Clip, error) {
	return e.edit(func(ed *timeline.Editor) (domain.Clip, error) {
		return ed.Paste(e.transport.Position())
	})
}

func (e *Engine) edit(fn func(*timeline.Editor) (domain.Clip, error)) (domain.Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clip, err := fn(e.editor)
	if err != nil {
		return domain.Clip{}, err
	}
	e.dirty = true
	return clip, nil
}

// StartExport begins an export of the whole timeline.
func (e *Engine) StartExport(ctx context.Context) (*job.Status, error) {
	return e.exporter.Start(ctx)
}

// PrepareExport implements export.Host.
func (e *Engine) PrepareExport() export.Prepared {
	e.mu.Lock()
	defer e.mu.Unlock()

	duration := e.model.Duration()
	e.transport.Pause()
	e.transport.Seek(0, duration)
	e.transport.BeginExport()

	clips := e.model.Clips()
	e.reconcile(clips)
	frame := e.syncVideo(clips, 0, false)
	e.comp.Render(clips, frame)
	e.lastFrame = frame
	e.dirty = false
	e.mixer.Sync(clips, 0, false)

	w, h := e.comp.Size()
	e.logger.Info("Preparing export", "width", w, "height", h, "duration", duration)
	return export.Prepared{
		Width:    w,
		Height:   h,
		Duration: duration,
		Frames:   e.comp,
		Audio:    e.mixer.Capture(),
	}
}

// StartPlayback implements export.Host.
func (e *Engine) StartPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transport.Play()
	e.last = e.clock.Now()
}

// FinishExport implements export.Host.
func (e *Engine) FinishExport() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transport.EndExport()
	e.dirty = true
}
