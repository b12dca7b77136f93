// Package mixer keeps one persistent channel per audio clip, routed to a
// monitor bus and a capture bus, and keeps each channel's element in step
// with the transport.
package mixer

import (
	"errors"
	"log/slog"

	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/media"
	"github.com/jaki95/timeline-editor/internal/transport"
)

// Mixer owns the audio elements and their routing. Track mute flags are not
// applied here.
type Mixer struct {
	registry *media.Registry
	channels map[string]*Channel
	monitor  *Bus
	capture  *Bus
	logger   *slog.Logger
}

// New creates a mixer that opens audio elements with factory.
func New(factory media.Factory) *Mixer {
	m := &Mixer{
		channels: make(map[string]*Channel),
		monitor:  NewBus(string(TapMonitor)),
		capture:  NewTimelineBus(string(TapCapture)),
		logger:   slog.Default().With("component", "mixer"),
	}
	m.registry = media.NewRegistry(domain.KindAudio, factory)
	m.registry.OnCreate = m.attach
	m.registry.OnRemove = m.detach
	return m
}

// Monitor returns the audible output bus.
func (m *Mixer) Monitor() *Bus {
	return m.monitor
}

// Capture returns the bus consumed by export.
func (m *Mixer) Capture() *Bus {
	return m.capture
}

// Channel returns the channel for an audio clip.
func (m *Mixer) Channel(clipID string) (*Channel, bool) {
	ch, ok := m.channels[clipID]
	return ch, ok
}

// Len returns the number of live channels.
func (m *Mixer) Len() int {
	return len(m.channels)
}

// Reconcile creates and tears down channels for the clip set at version.
func (m *Mixer) Reconcile(version uint64, clips []domain.Clip) {
	m.registry.Reconcile(version, clips)
}

// Sync plays every audio clip that contains position while the transport is
// playing, reseeking on drift, and pauses the rest. The capture bus is moved
// to position.
func (m *Mixer) Sync(clips []domain.Clip, position float64, playing bool) {
	m.capture.SetPosition(position)
	for _, c := range clips {
		if c.Kind != domain.KindAudio {
			continue
		}
		if ch, ok := m.channels[c.ID]; ok {
			ch.setClip(c)
		}
		el, ok := m.registry.Get(c.ID)
		if !ok {
			continue
		}
		if playing && c.Contains(position) {
			transport.Synchronize(el, c.LocalTime(position), true)
			continue
		}
		if !el.Paused() {
			el.Pause()
		}
	}
}

// Close releases every channel.
func (m *Mixer) Close() {
	m.registry.Close()
}

func (m *Mixer) attach(clip domain.Clip, el media.Element) {
	ch := newChannel(clip, el)
	m.channels[clip.ID] = ch
	m.connect(ch, TapMonitor, m.monitor)
	m.connect(ch, TapCapture, m.capture)
}

func (m *Mixer) connect(ch *Channel, tap Tap, sink Sink) {
	err := ch.Connect(tap, sink)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyConnected):
		m.logger.Debug("Channel already connected", "clip", ch.ClipID(), "tap", tap)
	default:
		m.logger.Warn("Failed to connect channel", "clip", ch.ClipID(), "tap", tap, "error", err)
	}
}

func (m *Mixer) detach(clipID string, _ media.Element) {
	ch, ok := m.channels[clipID]
	if !ok {
		return
	}
	ch.DisconnectAll()
	delete(m.channels, clipID)
}
