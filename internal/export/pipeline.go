// Package export drives one deterministic pass of the transport while
// capturing the compositor surface and the capture bus into an encoded
// artifact.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jaki95/timeline-editor/internal/encoder"
	"github.com/jaki95/timeline-editor/internal/job"
	"github.com/jaki95/timeline-editor/internal/media"
	"github.com/jaki95/timeline-editor/internal/progress"
	"github.com/jaki95/timeline-editor/internal/storage"
)

var ErrExportInProgress = errors.New("export already in progress")

// State is the export state machine.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// Prepared describes the timeline once the host is parked at zero, with the
// sources the capture reads from.
type Prepared struct {
	Width    int
	Height   int
	Duration float64
	Frames   FrameSource
	Audio    AudioSource
}

// Host is the playback side the pipeline drives.
type Host interface {
	// PrepareExport pauses at zero, enters export mode and paints frame zero.
	PrepareExport() Prepared
	// StartPlayback starts the transport.
	StartPlayback()
	// FinishExport leaves export mode and returns the transport to zero.
	FinishExport()
}

// Options configures a Pipeline.
type Options struct {
	Encoder      encoder.Encoder
	Capabilities encoder.Capabilities
	Profiles     []encoder.Profile
	Storage      storage.Storage
	Jobs         *job.Manager
	Tracker      *progress.ProgressTracker
	Clock        clock.Clock
	FrameRate    float64
	AudioBitrate string
	Settle       time.Duration
}

// Pipeline runs exports one at a time.
type Pipeline struct {
	opts   Options
	host   Host
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	jobID   string
	prep    Prepared
	profile encoder.Profile
	session encoder.Session
	capture *capture
	failed  error
	done    chan struct{}
	runErr  error

	bufMu  sync.Mutex
	chunks [][]byte

	jobMu      sync.Mutex
	currentJob string
}

// New creates a pipeline for host.
func New(host Host, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = "128k"
	}
	if len(opts.Profiles) == 0 {
		opts.Profiles = encoder.Profiles
	}
	if opts.Jobs == nil {
		opts.Jobs = job.NewManager()
	}
	if opts.Tracker == nil {
		opts.Tracker = progress.NewProgressTracker()
	}

	p := &Pipeline{
		opts:   opts,
		host:   host,
		logger: slog.Default().With("component", "export"),
	}
	opts.Tracker.AddListener(p.recordEvent)
	return p
}

// Jobs returns the job history.
func (p *Pipeline) Jobs() *job.Manager {
	return p.opts.Jobs
}

// Tracker returns the progress tracker.
func (p *Pipeline) Tracker() *progress.ProgressTracker {
	return p.opts.Tracker
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start prepares the host, negotiates an encoder and starts playback. It
// fails with ErrExportInProgress unless the pipeline is idle.
func (p *Pipeline) Start(ctx context.Context) (*job.Status, error) {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return nil, ErrExportInProgress
	}
	p.state = StatePreparing
	p.failed = nil
	p.runErr = nil
	p.done = make(chan struct{})
	p.mu.Unlock()

	prep := p.host.PrepareExport()
	j := p.opts.Jobs.CreateJob(prep.Width, prep.Height)
	p.setCurrentJob(j.ID)
	p.opts.Tracker.UpdateProgress(progress.StagePreparing, 0, "Preparing export", nil)

	p.bufMu.Lock()
	p.chunks = nil
	p.bufMu.Unlock()

	if p.opts.Settle > 0 {
		p.opts.Clock.Sleep(p.opts.Settle)
	}

	profile, err := encoder.SelectProfile(ctx, p.opts.Capabilities, p.opts.Profiles)
	if err != nil {
		return nil, p.abort(j.ID, fmt.Errorf("failed to select encoder: %w", err))
	}
	if err := p.opts.Jobs.SetProfile(j.ID, profile.Name); err != nil {
		p.logger.Debug("Failed to record profile", "job", j.ID, "error", err)
	}

	cfg := encoder.Config{
		Width:        prep.Width,
		Height:       prep.Height,
		FrameRate:    p.opts.FrameRate,
		SampleRate:   media.SampleRate,
		Channels:     media.Channels,
		VideoBitrate: encoder.BitrateFor(prep.Width, prep.Height),
		AudioBitrate: p.opts.AudioBitrate,
		Profile:      profile,
	}
	session, err := p.opts.Encoder.Start(context.WithoutCancel(ctx), cfg, p.appendChunk)
	if err != nil {
		return nil, p.abort(j.ID, fmt.Errorf("failed to start encoder: %w", err))
	}

	p.mu.Lock()
	p.jobID = j.ID
	p.prep = prep
	p.profile = profile
	p.session = session
	p.capture = newCapture(prep.Width, prep.Height, p.opts.FrameRate)
	p.state = StateRecording
	p.mu.Unlock()

	p.logger.Info("Export started", "job", j.ID, "profile", profile.Name, "width", prep.Width, "height", prep.Height, "duration", prep.Duration, "bitrate", cfg.VideoBitrate)
	p.opts.Tracker.UpdateProgress(progress.StageRecording, 0, "Recording", nil)

	// frame zero was painted by PrepareExport
	p.Capture(0, prep.Duration, prep.Frames, prep.Audio)
	p.host.StartPlayback()

	return p.opts.Jobs.GetJob(j.ID)
}

// Capture writes every frame and audio sample owed at position. It is a
// no-op unless recording.
func (p *Pipeline) Capture(position, duration float64, frames FrameSource, audio AudioSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRecording || p.failed != nil {
		return
	}
	c := p.capture

	if n := c.dueSamples(position); n > 0 {
		if err := p.session.WriteAudio(c.mix(audio, n)); err != nil {
			p.fail(err)
			return
		}
		c.samples += n
	}

	due := c.dueFrames(position, duration)
	if due <= 0 {
		return
	}
	pixels := c.grab(frames)
	for i := 0; i < due; i++ {
		if err := p.session.WriteFrame(pixels); err != nil {
			p.fail(err)
			return
		}
		c.frames++
	}

	total := totalFrames(duration, c.frameRate)
	step := max(1, int(c.frameRate))
	if (c.frames-due)/step != c.frames/step || c.frames == total {
		p.opts.Tracker.UpdateFrameProgress(c.frames, total, position, duration)
	}
}

// Finish starts finalization once the transport has stopped at the end of
// the timeline. Only the first call of a run has any effect.
func (p *Pipeline) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRecording {
		return
	}
	p.state = StateFinalizing
	go p.finalize(p.jobID, p.session, p.prep, p.profile, p.failed, p.done)
}

// Wait blocks until the current run has finished and returns its error.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.runErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) finalize(jobID string, session encoder.Session, prep Prepared, profile encoder.Profile, captureErr error, done chan struct{}) {
	p.opts.Tracker.UpdateProgress(progress.StageFinalizing, 100, "Finalizing", nil)

	err := session.Close()
	if captureErr != nil {
		err = errors.Join(captureErr, err)
	}

	var artifact job.Artifact
	if err == nil {
		artifact, err = p.deliver(prep, profile)
	}

	p.host.FinishExport()

	if err != nil {
		p.logger.Error("Export failed", "job", jobID, "error", err)
		p.opts.Tracker.SetError(err)
		if jerr := p.opts.Jobs.Fail(jobID, err); jerr != nil {
			p.logger.Debug("Failed to record job failure", "job", jobID, "error", jerr)
		}
	} else {
		p.logger.Info("Export complete", "job", jobID, "artifact", artifact.Name, "location", artifact.Location, "size", artifact.Size)
		if jerr := p.opts.Jobs.Complete(jobID, artifact); jerr != nil {
			p.logger.Debug("Failed to record job completion", "job", jobID, "error", jerr)
		}
		p.opts.Tracker.UpdateProgress(progress.StageComplete, 100, "Export complete", []byte(artifact.Name))
	}

	p.bufMu.Lock()
	p.chunks = nil
	p.bufMu.Unlock()

	p.mu.Lock()
	p.state = StateIdle
	p.session = nil
	p.capture = nil
	p.runErr = err
	p.mu.Unlock()
	close(done)
}

func (p *Pipeline) deliver(prep Prepared, profile encoder.Profile) (job.Artifact, error) {
	p.opts.Tracker.UpdateProgress(progress.StageDelivering, 100, "Delivering artifact", nil)

	p.bufMu.Lock()
	data := bytes.Join(p.chunks, nil)
	p.bufMu.Unlock()
	if len(data) == 0 {
		return job.Artifact{}, fmt.Errorf("encoder produced no output")
	}

	name := ArtifactName(prep.Width, prep.Height, p.opts.Clock.Now(), profile.Extension)
	location, size, err := p.opts.Storage.SaveArtifact(context.Background(), name, bytes.NewReader(data))
	if err != nil {
		return job.Artifact{}, fmt.Errorf("failed to deliver %s: %w", name, err)
	}
	return job.Artifact{Name: name, Location: location, Size: size, MimeType: profile.MimeType}, nil
}

// abort unwinds a run that failed before recording started.
func (p *Pipeline) abort(jobID string, err error) error {
	p.host.FinishExport()
	p.opts.Tracker.SetError(err)
	if jerr := p.opts.Jobs.Fail(jobID, err); jerr != nil {
		p.logger.Debug("Failed to record job failure", "job", jobID, "error", jerr)
	}

	p.mu.Lock()
	p.state = StateIdle
	p.runErr = err
	done := p.done
	p.mu.Unlock()
	close(done)
	return err
}

// fail records a capture error. The run still finalizes at the end of the
// timeline and reports it then.
func (p *Pipeline) fail(err error) {
	p.logger.Error("Capture failed", "job", p.jobID, "error", err)
	p.failed = fmt.Errorf("capture failed: %w", err)
}

func (p *Pipeline) appendChunk(chunk []byte) {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	p.chunks = append(p.chunks, chunk)
}

func (p *Pipeline) setCurrentJob(id string) {
	p.jobMu.Lock()
	defer p.jobMu.Unlock()
	p.currentJob = id
}

func (p *Pipeline) recordEvent(event progress.Event) {
	p.jobMu.Lock()
	id := p.currentJob
	p.jobMu.Unlock()
	if id == "" {
		return
	}
	// completion and failure are recorded by finalize
	if event.Stage == progress.StageComplete || event.Stage == progress.StageError {
		return
	}
	if err := p.opts.Jobs.RecordEvent(id, event); err != nil {
		p.logger.Debug("Failed to record export event", "job", id, "error", err)
	}
}
