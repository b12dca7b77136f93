// Package encoder configures and drives the external encoder that turns the
// captured surface and audio into a container stream.
package encoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/jaki95/timeline-editor/internal/media"
)

var ErrNoSupportedProfile = errors.New("no supported encoder profile")

// Profile is one container/codec combination.
type Profile struct {
	Name       string `json:"name"`
	Container  string `json:"container"`
	Extension  string `json:"extension"`
	MimeType   string `json:"mime_type"`
	VideoCodec string `json:"video_codec"`
	AudioCodec string `json:"audio_codec"`
}

// Profiles is the preference order, ending in the baseline every ffmpeg
// build carries.
var Profiles = []Profile{
	{Name: "mp4-h264-aac", Container: "mp4", Extension: "mp4", MimeType: "video/mp4", VideoCodec: "libx264", AudioCodec: "aac"},
	{Name: "webm-vp9-opus", Container: "webm", Extension: "webm", MimeType: "video/webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus"},
	{Name: "webm-vp8-opus", Container: "webm", Extension: "webm", MimeType: "video/webm", VideoCodec: "libvpx", AudioCodec: "libopus"},
	{Name: "mp4-mpeg4-aac", Container: "mp4", Extension: "mp4", MimeType: "video/mp4", VideoCodec: "mpeg4", AudioCodec: "aac"},
}

// Capabilities reports which ffmpeg encoders are available.
type Capabilities interface {
	Supports(ctx context.Context, encoder string) (bool, error)
}

// SelectProfile returns the first profile whose codecs are both supported.
func SelectProfile(ctx context.Context, caps Capabilities, profiles []Profile) (Profile, error) {
	for _, p := range profiles {
		video, err := caps.Supports(ctx, p.VideoCodec)
		if err != nil {
			return Profile{}, err
		}
		audio, err := caps.Supports(ctx, p.AudioCodec)
		if err != nil {
			return Profile{}, err
		}
		if video && audio {
			return p, nil
		}
		slog.Warn("Encoder profile unavailable, trying next", "profile", p.Name)
	}
	return Profile{}, ErrNoSupportedProfile
}

const (
	HighBitrate = 8_000_000
	MidBitrate  = 5_000_000
	LowBitrate  = 2_500_000
)

// BitrateFor picks the video bitrate tier from the output pixel count.
func BitrateFor(width, height int) int {
	pixels := width * height
	switch {
	case pixels >= 1920*1080:
		return HighBitrate
	case pixels < 1280*720:
		return LowBitrate
	default:
		return MidBitrate
	}
}

// listTimeout bounds the `ffmpeg -encoders` call.
const listTimeout = 30 * time.Second

// FFmpegCapabilities lists the encoders of an ffmpeg binary and answers from
// the cached list. Only a successful listing is cached.
type FFmpegCapabilities struct {
	Path string

	mu       sync.Mutex
	encoders map[string]bool
}

// Supports implements Capabilities. The listing outlives cancellation of
// ctx so an abandoned request cannot fail later exports.
func (c *FFmpegCapabilities) Supports(ctx context.Context, encoder string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.encoders == nil {
		encoders, err := c.list(ctx)
		if err != nil {
			return false, err
		}
		c.encoders = encoders
	}
	return c.encoders[encoder], nil
}

func (c *FFmpegCapabilities) list(ctx context.Context) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listTimeout)
	defer cancel()

	path := c.Path
	if path == "" {
		path = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, path, "-hide_banner", "-encoders")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list encoders: %w", media.NewFFmpegError(cmd, stderr.Bytes(), err))
	}
	return parseEncoders(out), nil
}

// parseEncoders reads the table printed by `ffmpeg -encoders`. Entries follow
// a dashed separator line and look like " V....D libx264  description".
func parseEncoders(out []byte) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !started {
			started = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		encoders[fields[1]] = true
	}
	return encoders
}
