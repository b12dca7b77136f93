package encoder

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Config describes one encoding run.
type Config struct {
	Width        int
	Height       int
	FrameRate    float64
	SampleRate   int
	Channels     int
	VideoBitrate int
	AudioBitrate string
	Profile      Profile
}

// ChunkFunc receives encoded output in arrival order.
type ChunkFunc func(chunk []byte)

// Encoder starts encoding sessions.
type Encoder interface {
	Start(ctx context.Context, cfg Config, onChunk ChunkFunc) (Session, error)
}

// Session accepts raw frames and audio. Close finalizes the output and only
// returns once every chunk has been handed to the ChunkFunc.
type Session interface {
	WriteFrame(rgba []byte) error
	WriteAudio(pcm []int16) error
	Close() error
}

func buildArgs(cfg Config) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.FormatFloat(cfg.FrameRate, 'f', -1, 64),
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-i", "pipe:3",
		"-map", "0:v",
		"-map", "1:a",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", cfg.Profile.VideoCodec,
		"-b:v", strconv.Itoa(cfg.VideoBitrate),
		"-pix_fmt", "yuv420p",
	}

	switch cfg.Profile.VideoCodec {
	case "libx264":
		args = append(args, "-preset", "veryfast")
	case "libvpx-vp9":
		args = append(args, "-deadline", "realtime", "-cpu-used", "8", "-row-mt", "1")
	case "libvpx":
		args = append(args, "-deadline", "realtime", "-cpu-used", "8")
	}

	args = append(args,
		"-c:a", cfg.Profile.AudioCodec,
		"-b:a", cfg.AudioBitrate,
	)

	if cfg.Profile.Container == "mp4" {
		args = append(args, "-movflags", "frag_keyframe+empty_moov+default_base_moof")
	}
	return append(args, "-f", cfg.Profile.Container, "pipe:1")
}

func pcmBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
