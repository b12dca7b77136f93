package media

import (
	"context"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
)

// AudioElement plays a clip's audio from PCM decoded in the background.
type AudioElement struct {
	*playhead

	path   string
	cancel context.CancelFunc

	mu      sync.RWMutex
	samples []int16
	ready   bool
	err     error
}

func openAudio(ffmpegPath, path string, duration float64, clk clock.Clock) *AudioElement {
	ctx, cancel := context.WithCancel(context.Background())
	a := &AudioElement{
		playhead: newPlayhead(clk, duration),
		path:     path,
		cancel:   cancel,
	}
	go a.load(ctx, ffmpegPath)
	return a
}

func (a *AudioElement) load(ctx context.Context, ffmpegPath string) {
	samples, err := DecodePCM(ctx, ffmpegPath, a.path)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Audio decode failed", "path", a.path, "error", err)
		}
		a.err = err
		return
	}
	a.samples = samples
	a.ready = true
}

// Ready reports whether the PCM has been decoded.
func (a *AudioElement) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

// Err returns the decode error, if decoding failed.
func (a *AudioElement) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// PCMAt implements PCMSource.
func (a *AudioElement) PCMAt(t float64, dst []int16) {
	clear(dst)

	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.ready {
		return
	}

	start := int(t*SampleRate) * Channels
	for i := range dst {
		j := start + i
		if j < 0 || j >= len(a.samples) {
			continue
		}
		dst[i] = a.samples[j]
	}
}

// Close stops any pending decode and drops the samples.
func (a *AudioElement) Close() error {
	a.cancel()
	a.Pause()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = nil
	a.ready = false
	return nil
}
