package media

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/jaki95/timeline-editor/internal/domain"
)

// FFmpegFactory opens ffmpeg-backed elements.
type FFmpegFactory struct {
	FFmpegPath string
	FrameRate  float64
	Clock      clock.Clock
	// Blocking makes video elements decode frames inline, for offline renders.
	Blocking bool
}

// Open implements Factory.
func (f *FFmpegFactory) Open(clip domain.Clip) (Element, error) {
	ffmpegPath := f.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	clk := f.Clock
	if clk == nil {
		clk = clock.New()
	}
	frameRate := f.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}

	switch clip.Kind {
	case domain.KindAudio:
		return openAudio(ffmpegPath, clip.Source, clip.SourceDuration, clk), nil
	case domain.KindVideo:
		return openVideo(ffmpegPath, clip.Source, clip.SourceDuration, frameRate, f.Blocking, clk), nil
	default:
		return nil, fmt.Errorf("unsupported media kind %q", clip.Kind)
	}
}
