// Package transport implements the global play/pause/position state machine
// and the per-tick active clip and drift computations that hang off it.
package transport

import "math"

// State is the playback state of the transport.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
)

// Event describes what an Advance call did at the timeline boundary.
type Event int

const (
	// EventNone means playback continued normally.
	EventNone Event = iota
	// EventLooped means ordinary playback reached the end and reset to zero.
	EventLooped
	// EventEnded means export playback reached the end and is held there.
	EventEnded
)

// Status is a point-in-time copy of the transport.
type Status struct {
	State     State   `json:"state"`
	Position  float64 `json:"position"`
	Exporting bool    `json:"exporting"`
}

// Transport is the global playhead. It is not safe for concurrent use.
type Transport struct {
	state     State
	position  float64
	exporting bool
}

// New returns a transport stopped at zero.
func New() *Transport {
	return &Transport{state: StateStopped}
}

// Status returns a copy of the current state.
func (t *Transport) Status() Status {
	return Status{State: t.state, Position: t.position, Exporting: t.exporting}
}

// Position returns the playhead in seconds.
func (t *Transport) Position() float64 {
	return t.position
}

// Playing reports whether the transport is advancing.
func (t *Transport) Playing() bool {
	return t.state == StatePlaying
}

// Exporting reports whether export mode is active.
func (t *Transport) Exporting() bool {
	return t.exporting
}

// Play starts playback from the current position. It reports whether the
// state changed.
func (t *Transport) Play() bool {
	if t.state == StatePlaying {
		return false
	}
	t.state = StatePlaying
	return true
}

// Pause stops playback and holds the position. Ignored while exporting.
func (t *Transport) Pause() bool {
	if t.exporting {
		return false
	}
	t.state = StateStopped
	return true
}

// Stop stops playback and rewinds to zero. Ignored while exporting.
func (t *Transport) Stop() bool {
	if t.exporting {
		return false
	}
	t.state = StateStopped
	t.position = 0
	return true
}

// Seek moves the playhead, clamped to [0, duration], leaving the play state
// alone. Seeks are rejected while exporting.
func (t *Transport) Seek(pos, duration float64) bool {
	if t.exporting {
		return false
	}
	t.position = math.Max(0, math.Min(pos, duration))
	return true
}

// BeginExport stops at zero and enters export mode. Play is the only user
// control honoured until EndExport.
func (t *Transport) BeginExport() {
	t.state = StateStopped
	t.position = 0
	t.exporting = true
}

// EndExport leaves export mode and rewinds to a stopped zero.
func (t *Transport) EndExport() {
	t.exporting = false
	t.state = StateStopped
	t.position = 0
}

// Advance moves the playhead by elapsed seconds while playing. Reaching the
// end stops the transport: ordinary playback rewinds to zero, export playback
// holds exactly at the end so finalization sees a stable position.
func (t *Transport) Advance(elapsed, duration float64) Event {
	if t.state != StatePlaying {
		return EventNone
	}

	next := t.position + elapsed
	if next < duration {
		t.position = next
		return EventNone
	}

	t.state = StateStopped
	if t.exporting {
		t.position = duration
		return EventEnded
	}
	t.position = 0
	return EventLooped
}
