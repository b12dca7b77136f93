package mixer

import (
	"sync"

	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/media"
)

// Tap names a channel output.
type Tap string

const (
	TapMonitor Tap = "monitor"
	TapCapture Tap = "capture"
)

// Channel routes one audio clip's element to its taps. Each tap is connected
// at most once.
type Channel struct {
	clipID string
	el     media.Element

	mu   sync.Mutex
	taps map[Tap]Sink

	clipMu sync.RWMutex
	clip   domain.Clip
}

func newChannel(clip domain.Clip, el media.Element) *Channel {
	return &Channel{clipID: clip.ID, el: el, taps: make(map[Tap]Sink), clip: clip}
}

func (c *Channel) ClipID() string {
	return c.clipID
}

func (c *Channel) Element() media.Element {
	return c.el
}

// Clip returns the clip placement the channel was last synced with.
func (c *Channel) Clip() domain.Clip {
	c.clipMu.RLock()
	defer c.clipMu.RUnlock()
	return c.clip
}

func (c *Channel) setClip(clip domain.Clip) {
	c.clipMu.Lock()
	defer c.clipMu.Unlock()
	c.clip = clip
}

// Connected reports whether tap already has a sink.
func (c *Channel) Connected(tap Tap) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.taps[tap]
	return ok
}

// Connect attaches sink to tap unless the tap is already connected.
func (c *Channel) Connect(tap Tap, sink Sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.taps[tap]; ok {
		return nil
	}
	if err := sink.Connect(c); err != nil {
		return err
	}
	c.taps[tap] = sink
	return nil
}

// DisconnectAll detaches every tap.
func (c *Channel) DisconnectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tap, sink := range c.taps {
		sink.Disconnect(c.clipID)
		delete(c.taps, tap)
	}
}
