package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayAdvance(t *testing.T) {
	tr := New()
	assert.Equal(t, EventNone, tr.Advance(1, 10), "stopped transport does not move")
	assert.Equal(t, 0.0, tr.Position())

	assert.True(t, tr.Play())
	assert.False(t, tr.Play(), "second play is a no-op")

	assert.Equal(t, EventNone, tr.Advance(0.5, 10))
	assert.Equal(t, EventNone, tr.Advance(0.25, 10))
	assert.InDelta(t, 0.75, tr.Position(), 1e-12)
	assert.True(t, tr.Playing())
}

func TestOrdinaryPlaybackLoopsToZero(t *testing.T) {
	tr := New()
	tr.Seek(4.9, 5)
	tr.Play()

	assert.Equal(t, EventLooped, tr.Advance(0.2, 5))
	assert.Equal(t, StateStopped, tr.Status().State)
	assert.Equal(t, 0.0, tr.Position())
}

func TestExportPlaybackHoldsAtEnd(t *testing.T) {
	tr := New()
	tr.Seek(3, 5)
	tr.BeginExport()
	assert.Equal(t, 0.0, tr.Position(), "export starts from zero")

	tr.Play()
	for i := 0; i < 4; i++ {
		assert.Equal(t, EventNone, tr.Advance(1, 5))
	}
	assert.Equal(t, EventEnded, tr.Advance(1, 5))

	st := tr.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Equal(t, 5.0, st.Position)
	assert.True(t, st.Exporting)

	tr.EndExport()
	st = tr.Status()
	assert.Equal(t, Status{State: StateStopped, Position: 0, Exporting: false}, st)
}

func TestControlsRejectedWhileExporting(t *testing.T) {
	tr := New()
	tr.BeginExport()
	tr.Play()
	tr.Advance(1, 5)

	assert.False(t, tr.Seek(3, 5))
	assert.False(t, tr.Pause())
	assert.False(t, tr.Stop())
	assert.Equal(t, 1.0, tr.Position())
	assert.True(t, tr.Playing())
}

func TestSeekClamps(t *testing.T) {
	tr := New()
	assert.True(t, tr.Seek(12, 10))
	assert.Equal(t, 10.0, tr.Position())
	assert.True(t, tr.Seek(-3, 10))
	assert.Equal(t, 0.0, tr.Position())
}

func TestPauseHoldsStopRewinds(t *testing.T) {
	tr := New()
	tr.Play()
	tr.Advance(2, 10)

	assert.True(t, tr.Pause())
	assert.Equal(t, 2.0, tr.Position())

	tr.Play()
	assert.True(t, tr.Stop())
	assert.Equal(t, 0.0, tr.Position())
	assert.False(t, tr.Playing())
}
