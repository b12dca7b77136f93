package timeline

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/jaki95/timeline-editor/internal/domain"
)

const (
	// GridQuantum is the snap step applied to user-driven time edits.
	GridQuantum = 0.02
	// MinClipDuration is the shortest a clip may be trimmed to.
	MinClipDuration = 0.1
	// MaxInitialDuration caps the length of a freshly imported clip.
	MaxInitialDuration = 10.0
	// ClipGap is the space left between an imported clip and its predecessor.
	ClipGap = 0.5
	// SplitGuard is the band at each clip edge where splits are ignored.
	SplitGuard = 0.05
)

// Snap rounds t to the nearest multiple of GridQuantum.
func Snap(t float64) float64 {
	return math.Round(t/GridQuantum) * GridQuantum
}

// SplitResult holds the two clips a split produced.
type SplitResult struct {
	Left  domain.Clip `json:"left"`
	Right domain.Clip `json:"right"`
}

// Editor applies edit gestures to a model. Invalid gestures are clamped to
// the nearest valid state rather than rejected.
type Editor struct {
	model   *Model
	session *Session
	newID   func() string
	logger  *slog.Logger
}

// NewEditor creates an editor over model and session.
func NewEditor(model *Model, session *Session) *Editor {
	return &Editor{
		model:   model,
		session: session,
		newID:   func() string { return uuid.New().String() },
		logger:  slog.Default().With("component", "editor"),
	}
}

// Model returns the model the editor mutates.
func (e *Editor) Model() *Model {
	return e.model
}

// Session returns the editing session.
func (e *Editor) Session() *Session {
	return e.session
}

// AddClip places a newly imported media file after the last clip on the track.
// The insertion point is computed from the model as it is at call time.
func (e *Editor) AddClip(trackID string, kind domain.MediaKind, source, name string, info domain.MediaInfo) (domain.Clip, error) {
	track, ok := e.model.Track(trackID)
	if !ok {
		return domain.Clip{}, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	if track.Kind != kind {
		return domain.Clip{}, fmt.Errorf("%w: cannot add %s to %s track %s", ErrTrackTypeMismatch, kind, track.Kind, track.ID)
	}

	start := 0.0
	last := -1.0
	for _, c := range e.model.clips {
		if c.TrackID == trackID && c.End() > last {
			last = c.End()
		}
	}
	if last >= 0 {
		start = last + ClipGap
	}

	clip := domain.Clip{
		ID:             e.newID(),
		TrackID:        trackID,
		Kind:           kind,
		Source:         source,
		Name:           name,
		Start:          start,
		Duration:       math.Min(info.Duration, MaxInitialDuration),
		Offset:         0,
		SourceDuration: info.Duration,
		Width:          info.Width,
		Height:         info.Height,
	}
	if err := e.model.Insert(clip); err != nil {
		return domain.Clip{}, err
	}

	e.logger.Debug("Clip added", "clip", clip.ID, "track", trackID, "start", clip.Start, "duration", clip.Duration)
	return clip, nil
}

// Move shifts a clip by delta, snapped to the grid and held at or after zero.
// Other clips are not considered; overlap is permitted.
func (e *Editor) Move(clipID string, delta float64) (domain.Clip, error) {
	clip, err := e.get(clipID)
	if err != nil {
		return domain.Clip{}, err
	}

	clip.Start = Snap(math.Max(0, clip.Start+delta))
	if err := e.model.Update(clip); err != nil {
		return domain.Clip{}, err
	}
	return clip, nil
}

// TrimStart moves the leading edge of a clip while its trailing edge stays put.
func (e *Editor) TrimStart(clipID string, delta float64) (domain.Clip, error) {
	clip, err := e.get(clipID)
	if err != nil {
		return domain.Clip{}, err
	}

	snapped := Snap(clip.Start + delta)
	finalDelta := snapped - clip.Start

	// the offset cannot go negative, the clip cannot leave the timeline and
	// the duration cannot drop under the floor
	lower := math.Max(-clip.Offset, -clip.Start)
	upper := clip.Duration - MinClipDuration
	finalDelta = math.Max(lower, math.Min(upper, finalDelta))

	clip.Start += finalDelta
	clip.Duration -= finalDelta
	clip.Offset += finalDelta
	if err := e.model.Update(clip); err != nil {
		return domain.Clip{}, err
	}
	return clip, nil
}

// TrimEnd moves the trailing edge of a clip. The media length bound wins
// over grid snapping.
func (e *Editor) TrimEnd(clipID string, delta float64) (domain.Clip, error) {
	clip, err := e.get(clipID)
	if err != nil {
		return domain.Clip{}, err
	}

	duration := math.Max(MinClipDuration, Snap(clip.Duration+delta))
	if clip.Offset+duration <= clip.SourceDuration {
		clip.Duration = duration
	} else {
		clip.Duration = clip.SourceDuration - clip.Offset
	}
	if err := e.model.Update(clip); err != nil {
		return domain.Clip{}, err
	}
	return clip, nil
}

// Split cuts a clip at a timeline position into two clips with fresh ids and
// selects the right half. Positions inside the edge guard band are ignored and
// a nil result is returned.
func (e *Editor) Split(clipID string, at float64) (*SplitResult, error) {
	clip, err := e.get(clipID)
	if err != nil {
		return nil, err
	}
	if at <= clip.Start+SplitGuard || at >= clip.End()-SplitGuard {
		e.logger.Debug("Split ignored near clip edge", "clip", clipID, "at", at)
		return nil, nil
	}

	head := at - clip.Start

	left := clip
	left.ID = e.newID()
	left.Duration = head

	right := clip
	right.ID = e.newID()
	right.Start = at
	right.Duration = clip.Duration - head
	right.Offset = clip.Offset + head

	if err := e.model.Replace(clipID, left, right); err != nil {
		return nil, err
	}
	e.session.setSelected(right.ID)
	return &SplitResult{Left: left, Right: right}, nil
}

// Delete removes a clip and drops the selection if it pointed at it.
func (e *Editor) Delete(clipID string) error {
	if !e.model.Remove(clipID) {
		return fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}
	if e.session.Selected() == clipID {
		e.session.setSelected("")
	}
	return nil
}

// Select marks a clip as the current selection. An empty id clears it.
func (e *Editor) Select(clipID string) error {
	if clipID == "" {
		e.session.setSelected("")
		return nil
	}
	if _, err := e.get(clipID); err != nil {
		return err
	}
	e.session.setSelected(clipID)
	return nil
}

// Copy stores a snapshot of the clip in the clipboard, replacing any previous one.
func (e *Editor) Copy(clipID string) error {
	clip, err := e.get(clipID)
	if err != nil {
		return err
	}
	e.session.store(clip)
	return nil
}

// Paste inserts a new clip from the clipboard on its original track. It lands
// at the end of the selected clip, or at the playhead when nothing is selected.
// The clipboard is left intact so paste can repeat.
func (e *Editor) Paste(playhead float64) (domain.Clip, error) {
	clip, ok := e.session.Clipboard()
	if !ok {
		return domain.Clip{}, ErrClipboardEmpty
	}

	start := math.Max(0, playhead)
	if sel, found := e.model.Clip(e.session.Selected()); found {
		start = sel.End()
	}

	clip.ID = e.newID()
	clip.Start = start
	if err := e.model.Insert(clip); err != nil {
		return domain.Clip{}, err
	}
	e.session.setSelected(clip.ID)
	return clip, nil
}

func (e *Editor) get(clipID string) (domain.Clip, error) {
	clip, ok := e.model.Clip(clipID)
	if !ok {
		return domain.Clip{}, fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}
	return clip, nil
}
