package export

import (
	"math"

	"github.com/jaki95/timeline-editor/internal/media"
)

// FrameSource hands out the current surface pixels.
type FrameSource interface {
	CopyPixels(dst []byte) ([]byte, int, int)
}

// AudioSource mixes the capture path.
type AudioSource interface {
	Mix(dst []int16)
}

// capture samples the surface at a fixed rate against the timeline position
// and pulls audio up to the position. It never runs ahead of the playhead.
type capture struct {
	frameRate float64
	width     int
	height    int

	frames  int
	samples int
	pixels  []byte
	pcm     []int16
}

func newCapture(width, height int, frameRate float64) *capture {
	return &capture{frameRate: frameRate, width: width, height: height}
}

// totalFrames is the number of frames a timeline of duration needs.
func totalFrames(duration, frameRate float64) int {
	return int(math.Ceil(duration*frameRate - 1e-9))
}

// dueFrames returns how many frames are owed at position.
func (c *capture) dueFrames(position, duration float64) int {
	due := int(math.Floor(position*c.frameRate+1e-9)) + 1
	if total := totalFrames(duration, c.frameRate); due > total {
		due = total
	}
	return due - c.frames
}

// dueSamples returns how many sample frames are owed at position.
func (c *capture) dueSamples(position float64) int {
	return int(math.Round(position*media.SampleRate)) - c.samples
}

// grab copies the surface. Frames whose size no longer matches the
// negotiated encoder size are replaced with black.
func (c *capture) grab(src FrameSource) []byte {
	var w, h int
	c.pixels, w, h = src.CopyPixels(c.pixels)
	if w != c.width || h != c.height {
		c.pixels = make([]byte, c.width*c.height*4)
		for i := 3; i < len(c.pixels); i += 4 {
			c.pixels[i] = 0xff
		}
	}
	return c.pixels
}

// mix pulls n sample frames from the audio source.
func (c *capture) mix(src AudioSource, n int) []int16 {
	size := n * media.Channels
	if cap(c.pcm) < size {
		c.pcm = make([]int16, size)
	}
	c.pcm = c.pcm[:size]
	src.Mix(c.pcm)
	return c.pcm
}
