// Package media defines the media elements the engine drives and the
// ffmpeg-backed implementations used outside of tests.
package media

import (
	"context"
	"errors"
	"image"

	"github.com/jaki95/timeline-editor/internal/domain"
)

const (
	SampleRate = 48000
	Channels   = 2
)

var ErrUnreadableMedia = errors.New("unreadable media")

// Element is a playable media resource bound to one clip. Times are media
// positions in seconds.
type Element interface {
	CurrentTime() float64
	Seek(t float64)
	Play()
	Pause()
	Paused() bool
	Ready() bool
	Close() error
}

// VideoElement additionally exposes the decoded frame at its current position.
// Frame returns nil until a frame has been decoded.
type VideoElement interface {
	Element
	Frame() image.Image
}

// PCMSource is an element that can hand out interleaved s16 stereo samples at
// SampleRate. PCMAt fills dst with the samples starting at media time t,
// zero-filling anything outside the decoded range.
type PCMSource interface {
	PCMAt(t float64, dst []int16)
}

// Factory opens the element for a clip.
type Factory interface {
	Open(clip domain.Clip) (Element, error)
}

// Prober reads duration and, for video, pixel dimensions from a media file.
// Failures wrap ErrUnreadableMedia.
type Prober interface {
	Probe(ctx context.Context, path string, kind domain.MediaKind) (domain.MediaInfo, error)
}
