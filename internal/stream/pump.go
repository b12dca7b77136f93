package stream

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jaki95/timeline-editor/internal/media"
)

const (
	// FrameDuration is the length of one monitor frame.
	FrameDuration = 20 * time.Millisecond
	// FrameSamples is the number of sample frames per monitor frame.
	FrameSamples = media.SampleRate / 50
)

// Mixer produces interleaved stereo PCM.
type Mixer interface {
	Mix(dst []int16)
}

// Pump mixes one frame from src every FrameDuration and sends it on the
// returned channel, which is closed when ctx is done. Frames are dropped
// when nobody is reading.
func Pump(ctx context.Context, clk clock.Clock, src Mixer) <-chan []int16 {
	out := make(chan []int16, 8)
	ticker := clk.Ticker(FrameDuration)

	go func() {
		defer close(out)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			frame := make([]int16, FrameSamples*media.Channels)
			src.Mix(frame)
			select {
			case out <- frame:
			default:
			}
		}
	}()
	return out
}
