// Package timeline holds the clip/track model and the edit operations that
// mutate clip geometry under the timeline invariants.
package timeline

import (
	"fmt"
	"math"
	"slices"

	"github.com/jaki95/timeline-editor/internal/domain"
)

// DefaultDuration is the timeline duration reported when no clips exist.
const DefaultDuration = 30.0

// DefaultTracks returns the track set a new session starts with.
func DefaultTracks() []domain.Track {
	return []domain.Track{
		{ID: "V1", Kind: domain.KindVideo, Name: "Video 1"},
		{ID: "A1", Kind: domain.KindAudio, Name: "Audio 1"},
		{ID: "A2", Kind: domain.KindAudio, Name: "Audio 2"},
	}
}

// Model stores the clips of a session. Iteration order is insertion order.
// It is not safe for concurrent use; the engine serializes access.
type Model struct {
	tracks  []domain.Track
	clips   []domain.Clip
	version uint64
}

// NewModel creates an empty model over a fixed track set.
func NewModel(tracks []domain.Track) *Model {
	t := make([]domain.Track, len(tracks))
	copy(t, tracks)
	return &Model{tracks: t}
}

// Tracks returns a copy of the track set.
func (m *Model) Tracks() []domain.Track {
	out := make([]domain.Track, len(m.tracks))
	copy(out, m.tracks)
	return out
}

// Track looks up a track by id.
func (m *Model) Track(id string) (domain.Track, bool) {
	for _, t := range m.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Track{}, false
}

// Clips returns a copy of all clips in iteration order.
func (m *Model) Clips() []domain.Clip {
	out := make([]domain.Clip, len(m.clips))
	copy(out, m.clips)
	return out
}

// Clip looks up a clip by id.
func (m *Model) Clip(id string) (domain.Clip, bool) {
	if i := m.index(id); i >= 0 {
		return m.clips[i], true
	}
	return domain.Clip{}, false
}

// Len returns the number of clips.
func (m *Model) Len() int {
	return len(m.clips)
}

// Version increases on every change to the clip set or clip geometry.
func (m *Model) Version() uint64 {
	return m.version
}

// Duration is the maximum clip end, or DefaultDuration when there are no clips.
func (m *Model) Duration() float64 {
	if len(m.clips) == 0 {
		return DefaultDuration
	}
	end := 0.0
	for _, c := range m.clips {
		end = math.Max(end, c.End())
	}
	return end
}

// Insert appends a clip.
func (m *Model) Insert(c domain.Clip) error {
	if err := m.check(c); err != nil {
		return err
	}
	if m.index(c.ID) >= 0 {
		return fmt.Errorf("%w: duplicate clip id %s", ErrInvalidClipState, c.ID)
	}
	m.clips = append(m.clips, c)
	m.version++
	return nil
}

// Update replaces the clip with the same id in place.
func (m *Model) Update(c domain.Clip) error {
	i := m.index(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrClipNotFound, c.ID)
	}
	if err := m.check(c); err != nil {
		return err
	}
	m.clips[i] = c
	m.version++
	return nil
}

// Remove deletes a clip and reports whether it existed.
func (m *Model) Remove(id string) bool {
	i := m.index(id)
	if i < 0 {
		return false
	}
	m.clips = append(m.clips[:i], m.clips[i+1:]...)
	m.version++
	return true
}

// Replace swaps the clip id for the given clips at the same position in the
// iteration order.
func (m *Model) Replace(id string, with ...domain.Clip) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrClipNotFound, id)
	}
	for _, c := range with {
		if err := m.check(c); err != nil {
			return err
		}
	}
	rest := append([]domain.Clip{}, m.clips[i+1:]...)
	m.clips = append(append(m.clips[:i], with...), rest...)
	m.version++
	return nil
}

// Reset replaces the whole clip set, validating every clip.
func (m *Model) Reset(clips []domain.Clip) error {
	seen := make(map[string]bool, len(clips))
	for _, c := range clips {
		if err := m.check(c); err != nil {
			return err
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate clip id %s", ErrInvalidClipState, c.ID)
		}
		seen[c.ID] = true
	}
	m.clips = append([]domain.Clip{}, clips...)
	m.version++
	return nil
}

// Restore loads a snapshot: track names and mute flags are copied onto the
// matching tracks, and the clip set is replaced. Snapshot tracks must exist
// with the same kind. Nothing changes on error.
func (m *Model) Restore(snap domain.Snapshot) error {
	for _, st := range snap.Tracks {
		track, ok := m.Track(st.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, st.ID)
		}
		if track.Kind != st.Kind {
			return fmt.Errorf("%w: stored %s track %s is %s", ErrTrackTypeMismatch, st.Kind, st.ID, track.Kind)
		}
	}
	if err := m.Reset(snap.Clips); err != nil {
		return err
	}
	for _, st := range snap.Tracks {
		i := slices.IndexFunc(m.tracks, func(t domain.Track) bool { return t.ID == st.ID })
		if st.Name != "" {
			m.tracks[i].Name = st.Name
		}
		m.tracks[i].Muted = st.Muted
	}
	return nil
}

// Snapshot copies the tracks and clips.
func (m *Model) Snapshot() domain.Snapshot {
	return domain.Snapshot{Tracks: m.Tracks(), Clips: m.Clips()}
}

func (m *Model) index(id string) int {
	for i, c := range m.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// check rejects impossible states only; the editor owns the finer invariants.
func (m *Model) check(c domain.Clip) error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidClipState)
	case math.IsNaN(c.Start) || math.IsNaN(c.Duration) || math.IsNaN(c.Offset):
		return fmt.Errorf("%w: NaN time field on %s", ErrInvalidClipState, c.ID)
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration %.3f on %s", ErrInvalidClipState, c.Duration, c.ID)
	case c.Start < 0:
		return fmt.Errorf("%w: start %.3f on %s", ErrInvalidClipState, c.Start, c.ID)
	case c.Offset < 0:
		return fmt.Errorf("%w: offset %.3f on %s", ErrInvalidClipState, c.Offset, c.ID)
	}

	track, ok := m.Track(c.TrackID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, c.TrackID)
	}
	if track.Kind != c.Kind {
		return fmt.Errorf("%w: %s clip on %s track %s", ErrTrackTypeMismatch, c.Kind, track.Kind, track.ID)
	}
	return nil
}
