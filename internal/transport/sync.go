package transport

import (
	"math"

	"github.com/jaki95/timeline-editor/internal/domain"
)

const (
	// PlayingDriftTolerance is the drift allowed before a playing element is reseeked.
	PlayingDriftTolerance = 0.2
	// PausedDriftTolerance keeps the paused frame exact at the playhead.
	PausedDriftTolerance = 0.01
)

// Syncable is the part of a media element the synchronizer drives.
type Syncable interface {
	CurrentTime() float64
	Seek(t float64)
	Play()
	Pause()
	Paused() bool
}

// ActiveVideo returns the first video clip, in model order, whose interval
// contains p. Only one video clip is ever rendered.
func ActiveVideo(clips []domain.Clip, p float64) (domain.Clip, bool) {
	for _, c := range clips {
		if c.Kind == domain.KindVideo && c.Contains(p) {
			return c, true
		}
	}
	return domain.Clip{}, false
}

// ActiveClips returns every clip of the given kind that contains p.
func ActiveClips(clips []domain.Clip, kind domain.MediaKind, p float64) []domain.Clip {
	var out []domain.Clip
	for _, c := range clips {
		if c.Kind == kind && c.Contains(p) {
			out = append(out, c)
		}
	}
	return out
}

// Drifted reports whether observed is further than tolerance from expected.
func Drifted(observed, expected, tolerance float64) bool {
	return math.Abs(observed-expected) > tolerance
}

// Synchronize keeps an element aligned with the playhead. While playing it
// reseeks only when the drift passes PlayingDriftTolerance or the element has
// stopped advancing; while paused it pauses and reseeks on any drift above
// PausedDriftTolerance.
func Synchronize(el Syncable, expected float64, playing bool) {
	if playing {
		if el.Paused() || Drifted(el.CurrentTime(), expected, PlayingDriftTolerance) {
			el.Seek(expected)
		}
		if el.Paused() {
			el.Play()
		}
		return
	}

	if !el.Paused() {
		el.Pause()
	}
	if Drifted(el.CurrentTime(), expected, PausedDriftTolerance) {
		el.Seek(expected)
	}
}
