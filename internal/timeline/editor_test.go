package timeline

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/timeline-editor/internal/domain"
)

const eps = 1e-9

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	e := NewEditor(NewModel(DefaultTracks()), NewSession())
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("clip-%d", n)
	}
	return e
}

func insert(t *testing.T, e *Editor, c domain.Clip) {
	t.Helper()
	require.NoError(t, e.model.Insert(c))
}

func assertInvariants(t *testing.T, m *Model) {
	t.Helper()
	for _, c := range m.Clips() {
		assert.GreaterOrEqual(t, c.Duration, MinClipDuration-eps, "duration floor on %s", c.ID)
		assert.GreaterOrEqual(t, c.Offset, 0.0, "offset on %s", c.ID)
		assert.LessOrEqual(t, c.Offset+c.Duration, c.SourceDuration+eps, "source bound on %s", c.ID)
		assert.GreaterOrEqual(t, c.Start, 0.0, "start on %s", c.ID)
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.009, 0},
		{0.011, 0.02},
		{1.234, 1.24},
		{2.5, 2.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Snap(tt.in), eps, "Snap(%v)", tt.in)
	}
}

func TestAddClip(t *testing.T) {
	e := newTestEditor(t)

	first, err := e.AddClip("V1", domain.KindVideo, "/a.mp4", "a.mp4", domain.MediaInfo{Duration: 25, Width: 1280, Height: 720})
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, MaxInitialDuration, first.Duration, "long media is capped")
	assert.Equal(t, 25.0, first.SourceDuration)
	assert.Equal(t, 0.0, first.Offset)
	assert.Equal(t, 1280, first.Width)

	second, err := e.AddClip("V1", domain.KindVideo, "/b.mp4", "b.mp4", domain.MediaInfo{Duration: 3})
	require.NoError(t, err)
	assert.Equal(t, first.End()+ClipGap, second.Start)
	assert.Equal(t, 3.0, second.Duration)

	audio, err := e.AddClip("A1", domain.KindAudio, "/c.wav", "c.wav", domain.MediaInfo{Duration: 4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, audio.Start, "other tracks do not affect insertion")
}

func TestAddClipUsesLatestEnd(t *testing.T) {
	e := newTestEditor(t)
	insert(t, e, videoClip("late", 20, 2))
	insert(t, e, videoClip("early", 0, 3))

	clip, err := e.AddClip("V1", domain.KindVideo, "/x.mp4", "x.mp4", domain.MediaInfo{Duration: 1})
	require.NoError(t, err)
	assert.Equal(t, 22.5, clip.Start)
}

func TestAddClipTrackMismatch(t *testing.T) {
	e := newTestEditor(t)

	_, err := e.AddClip("A1", domain.KindVideo, "/a.mp4", "a.mp4", domain.MediaInfo{Duration: 5})
	assert.ErrorIs(t, err, ErrTrackTypeMismatch)
	assert.Equal(t, 0, e.model.Len())

	_, err = e.AddClip("nope", domain.KindVideo, "/a.mp4", "a.mp4", domain.MediaInfo{Duration: 5})
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestMove(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		delta float64
		want  float64
	}{
		{name: "forward snapped", start: 1, delta: 0.333, want: 1.34},
		{name: "backward", start: 3, delta: -1.015, want: 1.98},
		{name: "clamped at zero", start: 1, delta: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t)
			c := videoClip("a", tt.start, 2)
			c.SourceDuration = 4
			c.Offset = 1
			insert(t, e, c)

			moved, err := e.Move("a", tt.delta)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, moved.Start, eps)
			assert.Equal(t, 2.0, moved.Duration, "move never changes duration")
			assert.Equal(t, 1.0, moved.Offset, "move never changes offset")
			assertInvariants(t, e.model)
		})
	}
}

func TestMoveResultIsOnGrid(t *testing.T) {
	e := newTestEditor(t)
	insert(t, e, videoClip("a", 5, 1))

	for _, delta := range []float64{0.001, 0.017, 0.5049, 1.111, -2.345, 3.14159} {
		clip, _ := e.model.Clip("a")
		requested := clip.Start + delta
		moved, err := e.Move("a", delta)
		require.NoError(t, err)
		assert.Less(t, math.Abs(moved.Start-math.Round(requested/GridQuantum)*GridQuantum), eps)
	}
}

func TestTrimStart(t *testing.T) {
	tests := []struct {
		name  string
		clip  domain.Clip
		delta float64
		want  domain.Clip
	}{
		{
			name:  "over-drag left is bounded by the offset",
			clip:  domain.Clip{Start: 2, Duration: 4, Offset: 1, SourceDuration: 10},
			delta: -5,
			want:  domain.Clip{Start: 1, Duration: 5, Offset: 0, SourceDuration: 10},
		},
		{
			name:  "over-drag right keeps the duration floor",
			clip:  domain.Clip{Start: 2, Duration: 4, Offset: 1, SourceDuration: 10},
			delta: 10,
			want:  domain.Clip{Start: 5.9, Duration: 0.1, Offset: 4.9, SourceDuration: 10},
		},
		{
			name:  "snapped trim",
			clip:  domain.Clip{Start: 2, Duration: 4, Offset: 1, SourceDuration: 10},
			delta: 0.511,
			want:  domain.Clip{Start: 2.52, Duration: 3.48, Offset: 1.52, SourceDuration: 10},
		},
		{
			name:  "cannot push the start below zero",
			clip:  domain.Clip{Start: 0.5, Duration: 2, Offset: 3, SourceDuration: 10},
			delta: -2,
			want:  domain.Clip{Start: 0, Duration: 2.5, Offset: 2.5, SourceDuration: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t)
			c := tt.clip
			c.ID, c.TrackID, c.Kind = "a", "V1", domain.KindVideo
			insert(t, e, c)

			got, err := e.TrimStart("a", tt.delta)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Start, got.Start, eps)
			assert.InDelta(t, tt.want.Duration, got.Duration, eps)
			assert.InDelta(t, tt.want.Offset, got.Offset, eps)
			assert.InDelta(t, c.End(), got.End(), eps, "trailing edge stays fixed")
			assert.Equal(t, "V1", got.TrackID)
			assertInvariants(t, e.model)
		})
	}
}

func TestTrimEnd(t *testing.T) {
	tests := []struct {
		name  string
		clip  domain.Clip
		delta float64
		want  float64
	}{
		{name: "extend snapped", clip: domain.Clip{Duration: 2, Offset: 1, SourceDuration: 10}, delta: 1.013, want: 3.02},
		{name: "shrink to floor", clip: domain.Clip{Duration: 2, Offset: 1, SourceDuration: 10}, delta: -50, want: 0.1},
		{name: "media bound wins", clip: domain.Clip{Duration: 2, Offset: 1, SourceDuration: 4.33}, delta: 100, want: 3.33},
		{name: "media bound wins over snap", clip: domain.Clip{Duration: 2, Offset: 0, SourceDuration: 2.01}, delta: 0.02, want: 2.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEditor(t)
			c := tt.clip
			c.ID, c.TrackID, c.Kind = "a", "V1", domain.KindVideo
			insert(t, e, c)

			got, err := e.TrimEnd("a", tt.delta)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Duration, eps)
			assert.Equal(t, c.Start, got.Start)
			assert.Equal(t, c.Offset, got.Offset)
			assert.LessOrEqual(t, got.Offset+got.Duration, got.SourceDuration+eps)
			assertInvariants(t, e.model)
		})
	}
}

func TestSplit(t *testing.T) {
	e := newTestEditor(t)
	insert(t, e, domain.Clip{ID: "a", TrackID: "V1", Kind: domain.KindVideo, Start: 0, Duration: 5, SourceDuration: 5})

	res, err := e.Split("a", 2)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 0.0, res.Left.Start)
	assert.Equal(t, 2.0, res.Left.Duration)
	assert.Equal(t, 0.0, res.Left.Offset)
	assert.Equal(t, 2.0, res.Right.Start)
	assert.Equal(t, 3.0, res.Right.Duration)
	assert.Equal(t, 2.0, res.Right.Offset)

	assert.NotEqual(t, "a", res.Left.ID)
	assert.NotEqual(t, "a", res.Right.ID)
	assert.NotEqual(t, res.Left.ID, res.Right.ID)
	assert.Equal(t, res.Right.ID, e.session.Selected())

	_, ok := e.model.Clip("a")
	assert.False(t, ok, "original clip is replaced")
	assert.Equal(t, 2, e.model.Len())
	assertInvariants(t, e.model)
}

func TestSplitCoverage(t *testing.T) {
	e := newTestEditor(t)
	orig := domain.Clip{ID: "a", TrackID: "A1", Kind: domain.KindAudio, Start: 1.3, Duration: 3.7, Offset: 0.4, SourceDuration: 6}
	insert(t, e, orig)

	res, err := e.Split("a", 2.77)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, orig.Duration, res.Left.Duration+res.Right.Duration, eps)
	assert.InDelta(t, res.Left.Duration, res.Right.Offset-res.Left.Offset, eps)
}

func TestSplitGuardBand(t *testing.T) {
	for _, at := range []float64{-1, 0, 0.05, 4.95, 5, 7} {
		t.Run(fmt.Sprintf("at=%v", at), func(t *testing.T) {
			e := newTestEditor(t)
			insert(t, e, videoClip("a", 0, 5))

			res, err := e.Split("a", at)
			require.NoError(t, err)
			assert.Nil(t, res)
			_, ok := e.model.Clip("a")
			assert.True(t, ok, "clip untouched")
		})
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	e := newTestEditor(t)
	insert(t, e, videoClip("a", 0, 5))
	insert(t, e, videoClip("b", 6, 5))

	require.NoError(t, e.Select("a"))
	require.NoError(t, e.Delete("b"))
	assert.Equal(t, "a", e.session.Selected())

	require.NoError(t, e.Delete("a"))
	assert.Equal(t, "", e.session.Selected())

	assert.ErrorIs(t, e.Delete("a"), ErrClipNotFound)
}

func TestCopyPaste(t *testing.T) {
	e := newTestEditor(t)
	src := domain.Clip{ID: "a", TrackID: "A2", Kind: domain.KindAudio, Source: "/v.wav", Name: "v", Start: 1, Duration: 2, Offset: 0.5, SourceDuration: 8}
	insert(t, e, src)

	_, err := e.Paste(0)
	assert.ErrorIs(t, err, ErrClipboardEmpty)

	require.NoError(t, e.Copy("a"))

	// nothing selected: lands at the playhead
	first, err := e.Paste(7.5)
	require.NoError(t, err)
	assert.Equal(t, 7.5, first.Start)
	assert.Equal(t, "A2", first.TrackID)
	assert.Equal(t, src.Duration, first.Duration)
	assert.Equal(t, src.Offset, first.Offset)
	assert.NotEqual(t, src.ID, first.ID)
	assert.Equal(t, first.ID, e.session.Selected())

	// selection now points at the pasted clip: next paste follows it
	second, err := e.Paste(0)
	require.NoError(t, err)
	assert.Equal(t, first.End(), second.Start)
	assert.Equal(t, 3, e.model.Len())
	assertInvariants(t, e.model)
}

func TestCopyOverwritesClipboard(t *testing.T) {
	e := newTestEditor(t)
	insert(t, e, videoClip("a", 0, 1))
	insert(t, e, videoClip("b", 0, 3))

	require.NoError(t, e.Copy("a"))
	require.NoError(t, e.Copy("b"))

	clip, ok := e.session.Clipboard()
	require.True(t, ok)
	assert.Equal(t, 3.0, clip.Duration)
	assert.Empty(t, clip.ID)
}

func TestEditsOnMissingClip(t *testing.T) {
	e := newTestEditor(t)

	_, err := e.Move("x", 1)
	assert.ErrorIs(t, err, ErrClipNotFound)
	_, err = e.TrimStart("x", 1)
	assert.ErrorIs(t, err, ErrClipNotFound)
	_, err = e.TrimEnd("x", 1)
	assert.ErrorIs(t, err, ErrClipNotFound)
	_, err = e.Split("x", 1)
	assert.ErrorIs(t, err, ErrClipNotFound)
	assert.ErrorIs(t, e.Copy("x"), ErrClipNotFound)
	assert.ErrorIs(t, e.Select("x"), ErrClipNotFound)
}

func TestRandomGesturesKeepInvariants(t *testing.T) {
	e := newTestEditor(t)
	insert(t, e, domain.Clip{ID: "a", TrackID: "V1", Kind: domain.KindVideo, Start: 3, Duration: 4, Offset: 2, SourceDuration: 9})

	deltas := []float64{-7.3, 0.01, 2.222, -0.5, 11, -3.33, 0.049, 5.5, -12}
	for i, d := range deltas {
		_, err := e.Move("a", d)
		require.NoError(t, err)
		_, err = e.TrimStart("a", d*0.7)
		require.NoError(t, err)
		_, err = e.TrimEnd("a", -d)
		require.NoError(t, err)
		assertInvariants(t, e.model)
		if t.Failed() {
			t.Fatalf("invariants broken after gesture %d", i)
		}
	}
}
