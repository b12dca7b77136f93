package compositor

import (
	"errors"
	"fmt"

	"github.com/jaki95/timeline-editor/internal/domain"
)

// Mode selects how the surface size is chosen.
type Mode string

const (
	Mode720p   Mode = "720p"
	Mode1080p  Mode = "1080p"
	ModeSource Mode = "source"
	ModeCustom Mode = "custom"
)

const (
	defaultWidth  = 1280
	defaultHeight = 720
)

var ErrInvalidTarget = errors.New("invalid resolution target")

// Target is a resolution request. Width and Height are only read in custom mode.
type Target struct {
	Mode   Mode `json:"mode"`
	Width  int  `json:"width,omitempty"`
	Height int  `json:"height,omitempty"`
}

// Validate rejects unknown modes and unusable custom sizes. Custom sizes must
// be even so the encoded output can use 4:2:0 chroma.
func (t Target) Validate() error {
	switch t.Mode {
	case Mode720p, Mode1080p, ModeSource:
		return nil
	case ModeCustom:
		if t.Width <= 0 || t.Height <= 0 {
			return fmt.Errorf("%w: custom size %dx%d must be positive", ErrInvalidTarget, t.Width, t.Height)
		}
		if t.Width%2 != 0 || t.Height%2 != 0 {
			return fmt.Errorf("%w: custom size %dx%d must be even", ErrInvalidTarget, t.Width, t.Height)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidTarget, t.Mode)
	}
}

// Resolve returns the surface size for the target given the current clips.
// Source mode picks the largest video clip by pixel count, first found on
// ties, and falls back to 1280x720 without video.
func (t Target) Resolve(clips []domain.Clip) (int, int) {
	switch t.Mode {
	case Mode1080p:
		return 1920, 1080
	case ModeCustom:
		return t.Width, t.Height
	case ModeSource:
		var best *domain.Clip
		for i := range clips {
			c := &clips[i]
			if c.Kind != domain.KindVideo || c.Pixels() <= 0 {
				continue
			}
			if best == nil || c.Pixels() > best.Pixels() {
				best = c
			}
		}
		if best != nil {
			return best.Width, best.Height
		}
	}
	return defaultWidth, defaultHeight
}
