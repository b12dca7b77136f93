package media

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/benbjohnson/clock"
)

// VideoFrames is a VideoElement that decodes frames on demand, quantized to
// a frame rate. Non-blocking elements keep returning the previous frame while
// the next one decodes; blocking elements decode inline.
type VideoFrames struct {
	*playhead

	path       string
	ffmpegPath string
	frameRate  float64
	blocking   bool
	ctx        context.Context
	cancel     context.CancelFunc

	mu      sync.Mutex
	frame   image.Image
	index   int64
	pending bool
}

func openVideo(ffmpegPath, path string, duration, frameRate float64, blocking bool, clk clock.Clock) *VideoFrames {
	ctx, cancel := context.WithCancel(context.Background())
	return &VideoFrames{
		playhead:   newPlayhead(clk, duration),
		path:       path,
		ffmpegPath: ffmpegPath,
		frameRate:  frameRate,
		blocking:   blocking,
		ctx:        ctx,
		cancel:     cancel,
		index:      -1,
	}
}

// Ready reports whether at least one frame has been decoded.
func (v *VideoFrames) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame != nil
}

// Frame returns the frame at the element's current time.
func (v *VideoFrames) Frame() image.Image {
	index := int64(math.Floor(v.CurrentTime() * v.frameRate))

	v.mu.Lock()
	if index == v.index || v.pending {
		frame := v.frame
		v.mu.Unlock()
		return frame
	}
	v.pending = true
	v.mu.Unlock()

	if v.blocking {
		v.fetch(index)
	} else {
		go v.fetch(index)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

func (v *VideoFrames) fetch(index int64) {
	img, err := ExtractFrame(v.ctx, v.ffmpegPath, v.path, float64(index)/v.frameRate)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = false
	if err != nil {
		if v.ctx.Err() == nil {
			slog.Debug("Frame decode failed", "path", v.path, "frame", index, "error", err)
		}
		return
	}
	v.frame = img
	v.index = index
}

// Close cancels any in-flight decode.
func (v *VideoFrames) Close() error {
	v.cancel()
	v.Pause()
	return nil
}
