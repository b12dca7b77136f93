package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/jaki95/timeline-editor/internal/domain"
)

// FFprobe reads media metadata with the ffprobe binary.
type FFprobe struct {
	path string
}

// NewFFprobe creates a prober that runs the given ffprobe binary.
func NewFFprobe(path string) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{path: path}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Probe implements Prober.
func (f *FFprobe) Probe(ctx context.Context, path string, kind domain.MediaKind) (domain.MediaInfo, error) {
	if err := validateFile(path); err != nil {
		return domain.MediaInfo{}, fmt.Errorf("%w: %w", ErrUnreadableMedia, err)
	}

	cmd := exec.CommandContext(ctx, f.path,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return domain.MediaInfo{}, ctx.Err()
		}
		return domain.MediaInfo{}, fmt.Errorf("%w: %w", ErrUnreadableMedia, NewFFmpegError(cmd, stderr.Bytes(), err))
	}

	info, err := parseProbe(out, kind)
	if err != nil {
		return domain.MediaInfo{}, fmt.Errorf("%w: %s: %w", ErrUnreadableMedia, path, err)
	}

	slog.Debug("Probed media", "path", path, "kind", kind, "duration", info.Duration, "width", info.Width, "height", info.Height)
	return info, nil
}

func parseProbe(data []byte, kind domain.MediaKind) (domain.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return domain.MediaInfo{}, fmt.Errorf("invalid ffprobe output: %w", err)
	}

	var info domain.MediaInfo
	found := false
	for _, s := range out.Streams {
		switch {
		case kind == domain.KindVideo && s.CodecType == "video" && !found:
			info.Width, info.Height = s.Width, s.Height
			info.Duration = parseSeconds(s.Duration)
			found = true
		case kind == domain.KindAudio && s.CodecType == "audio" && !found:
			info.Duration = parseSeconds(s.Duration)
			found = true
		}
	}
	if !found {
		return domain.MediaInfo{}, fmt.Errorf("no %s stream", kind)
	}

	if d := parseSeconds(out.Format.Duration); d > 0 {
		info.Duration = d
	}
	if info.Duration <= 0 {
		return domain.MediaInfo{}, fmt.Errorf("unknown duration")
	}
	if kind == domain.KindVideo && (info.Width <= 0 || info.Height <= 0) {
		return domain.MediaInfo{}, fmt.Errorf("unknown frame size")
	}
	return info, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
