package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/jaki95/timeline-editor/internal/media"
)

const defaultChunkSize = 64 * 1024

// FFmpeg encodes with an ffmpeg child process. Raw RGBA frames go to stdin,
// s16le audio to an extra pipe, and the container is streamed from stdout.
type FFmpeg struct {
	Path      string
	ChunkSize int
}

// NewFFmpeg creates an encoder for the given ffmpeg binary.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path, ChunkSize: defaultChunkSize}
}

type ffmpegSession struct {
	cmd    *exec.Cmd
	video  *pipeWriter
	audio  *pipeWriter
	stderr bytes.Buffer
	read   chan error
	frame  int

	closeOnce sync.Once
	closeErr  error
}

// Start implements Encoder.
func (f *FFmpeg) Start(ctx context.Context, cfg Config, onChunk ChunkFunc) (Session, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}

	audioR, audioW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create audio pipe: %w", err)
	}

	s := &ffmpegSession{
		cmd:   exec.CommandContext(ctx, f.Path, buildArgs(cfg)...),
		read:  make(chan error, 1),
		frame: cfg.Width * cfg.Height * 4,
	}
	s.cmd.Stderr = &s.stderr
	s.cmd.ExtraFiles = []*os.File{audioR}

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		audioR.Close()
		audioW.Close()
		return nil, fmt.Errorf("failed to open encoder stdin: %w", err)
	}
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		audioR.Close()
		audioW.Close()
		return nil, fmt.Errorf("failed to open encoder stdout: %w", err)
	}

	slog.Info("Starting encoder", "profile", cfg.Profile.Name, "width", cfg.Width, "height", cfg.Height, "bitrate", cfg.VideoBitrate)
	if err := s.cmd.Start(); err != nil {
		audioR.Close()
		audioW.Close()
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}
	// the child holds its own copy of the read end
	audioR.Close()

	s.video = newPipeWriter(stdin)
	s.audio = newPipeWriter(audioW)

	chunkSize := f.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	go s.readOutput(stdout, chunkSize, onChunk)

	return s, nil
}

func (s *ffmpegSession) readOutput(r io.Reader, size int, onChunk ChunkFunc) {
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			s.read <- err
			return
		}
	}
}

func (s *ffmpegSession) WriteFrame(rgba []byte) error {
	if len(rgba) != s.frame {
		return fmt.Errorf("frame is %d bytes, want %d", len(rgba), s.frame)
	}
	frame := make([]byte, len(rgba))
	copy(frame, rgba)
	return s.video.Write(frame)
}

func (s *ffmpegSession) WriteAudio(pcm []int16) error {
	if len(pcm) == 0 {
		return nil
	}
	return s.audio.Write(pcmBytes(pcm))
}

// Close flushes both inputs, waits for the container trailer and reaps the
// process.
func (s *ffmpegSession) Close() error {
	s.closeOnce.Do(func() {
		videoErr := s.video.Close()
		audioErr := s.audio.Close()
		readErr := <-s.read

		if err := s.cmd.Wait(); err != nil {
			s.closeErr = media.NewFFmpegError(s.cmd, s.stderr.Bytes(), err)
			return
		}
		s.closeErr = errors.Join(videoErr, audioErr, readErr)
	})
	return s.closeErr
}
