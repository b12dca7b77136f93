package media

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// playhead tracks an element's media position against a clock. Playback
// stops by itself at the end of the media.
type playhead struct {
	clock    clock.Clock
	duration float64

	mu      sync.Mutex
	base    float64
	anchor  time.Time
	playing bool
}

func newPlayhead(clk clock.Clock, duration float64) *playhead {
	return &playhead{clock: clk, duration: duration}
}

func (p *playhead) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

func (p *playhead) currentLocked() float64 {
	if !p.playing {
		return p.base
	}
	pos := p.base + p.clock.Since(p.anchor).Seconds()
	if pos >= p.duration {
		p.base = p.duration
		p.playing = false
		return p.duration
	}
	return pos
}

func (p *playhead) Seek(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = math.Max(0, math.Min(t, p.duration))
	p.anchor = p.clock.Now()
}

func (p *playhead) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing || p.base >= p.duration {
		return
	}
	p.anchor = p.clock.Now()
	p.playing = true
}

func (p *playhead) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.currentLocked()
	p.playing = false
}

func (p *playhead) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentLocked()
	return !p.playing
}
