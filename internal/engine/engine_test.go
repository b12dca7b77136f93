package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/timeline-editor/internal/compositor"
	"github.com/jaki95/timeline-editor/internal/domain"
	"github.com/jaki95/timeline-editor/internal/encoder"
	"github.com/jaki95/timeline-editor/internal/export"
	"github.com/jaki95/timeline-editor/internal/media"
	"github.com/jaki95/timeline-editor/internal/timeline"
	"github.com/jaki95/timeline-editor/internal/transport"
)

type fakeElement struct {
	mu      sync.Mutex
	current float64
	paused  bool
	seeks   int
	frame   image.Image
}

func (f *fakeElement) CurrentTime() float64 { f.mu.Lock(); defer f.mu.Unlock(); return f.current }
func (f *fakeElement) Seek(t float64)       { f.mu.Lock(); defer f.mu.Unlock(); f.current = t; f.seeks++ }
func (f *fakeElement) Play()                { f.mu.Lock(); defer f.mu.Unlock(); f.paused = false }
func (f *fakeElement) Pause()               { f.mu.Lock(); defer f.mu.Unlock(); f.paused = true }
func (f *fakeElement) Paused() bool         { f.mu.Lock(); defer f.mu.Unlock(); return f.paused }
func (f *fakeElement) Ready() bool          { return true }
func (f *fakeElement) Close() error         { return nil }
func (f *fakeElement) Frame() image.Image   { return f.frame }
func (f *fakeElement) PCMAt(_ float64, dst []int16) {
	for i := range dst {
		dst[i] = 100
	}
}

type fakeFactory struct {
	mu       sync.Mutex
	elements map[string]*fakeElement
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{elements: map[string]*fakeElement{}}
}

func (f *fakeFactory) Open(clip domain.Clip) (media.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el := &fakeElement{paused: true, frame: solid(color.RGBA{R: 255, A: 255})}
	f.elements[clip.Source] = el
	return el, nil
}

func (f *fakeFactory) get(source string) *fakeElement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elements[source]
}

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

type fakeProber struct {
	infos map[string]domain.MediaInfo
	gates map[string]chan struct{}
}

func (p *fakeProber) Probe(ctx context.Context, path string, _ domain.MediaKind) (domain.MediaInfo, error) {
	if gate, ok := p.gates[path]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.MediaInfo{}, ctx.Err()
		}
	}
	info, ok := p.infos[path]
	if !ok {
		return domain.MediaInfo{}, media.ErrUnreadableMedia
	}
	return info, nil
}

type testEngine struct {
	*Engine
	clock  *clock.Mock
	video  *fakeFactory
	audio  *fakeFactory
	prober *fakeProber
}

func newTestEngine(t *testing.T, exportOpts export.Options) *testEngine {
	t.Helper()
	mock := clock.NewMock()
	te := &testEngine{
		clock: mock,
		video: newFakeFactory(),
		audio: newFakeFactory(),
		prober: &fakeProber{
			infos: map[string]domain.MediaInfo{
				"a.mp4": {Duration: 5, Width: 64, Height: 36},
				"b.mp4": {Duration: 20, Width: 128, Height: 72},
				"m.wav": {Duration: 3},
			},
			gates: map[string]chan struct{}{},
		},
	}
	e, err := New(Options{
		Target:       compositor.Target{Mode: compositor.ModeCustom, Width: 32, Height: 18},
		VideoFactory: te.video,
		AudioFactory: te.audio,
		Prober:       te.prober,
		Clock:        mock,
		Export:       exportOpts,
	})
	require.NoError(t, err)
	te.Engine = e
	return te
}

// step advances the mock clock by dt and ticks.
func (te *testEngine) step(dt time.Duration) {
	te.clock.Add(dt)
	te.Tick()
}

func TestImport(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	ctx := context.Background()

	first, err := te.Import(ctx, "a.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, 5.0, first.Duration)
	assert.Equal(t, "a.mp4", first.Name)
	assert.Equal(t, 64, first.Width)

	second, err := te.Import(ctx, "b.mp4", "Second", "V1", domain.KindVideo)
	require.NoError(t, err)
	assert.Equal(t, 5.5, second.Start)
	assert.Equal(t, 10.0, second.Duration, "initial duration is capped")

	_, err = te.Import(ctx, "m.wav", "", "V1", domain.KindAudio)
	assert.ErrorIs(t, err, timeline.ErrTrackTypeMismatch)

	_, err = te.Import(ctx, "broken.mp4", "", "V1", domain.KindVideo)
	assert.ErrorIs(t, err, media.ErrUnreadableMedia)

	_, err = te.Import(ctx, "a.mp4", "", "V9", domain.KindVideo)
	assert.ErrorIs(t, err, timeline.ErrTrackNotFound)

	assert.Len(t, te.Snapshot().Clips, 2, "failed imports add nothing")
}

func TestConcurrentImportsUseStateAtResolve(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	ctx := context.Background()
	slow := make(chan struct{})
	te.prober.gates["a.mp4"] = slow

	var wg sync.WaitGroup
	var slowClip domain.Clip
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowClip, slowErr = te.Import(ctx, "a.mp4", "", "V1", domain.KindVideo)
	}()

	fast, err := te.Import(ctx, "b.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fast.Start)

	close(slow)
	wg.Wait()
	require.NoError(t, slowErr)
	assert.Equal(t, 10.5, slowClip.Start, "placed after the clip that resolved first")
}

func TestTickPlaysAndLoops(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	_, err := te.Import(context.Background(), "a.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)

	te.Tick()
	el := te.video.get("a.mp4")
	require.NotNil(t, el)
	assert.True(t, el.Paused())

	_, err = te.Play()
	require.NoError(t, err)
	te.step(time.Second)
	st := te.Status()
	assert.Equal(t, transport.StatePlaying, st.Transport.State)
	assert.InDelta(t, 1.0, st.Transport.Position, 1e-9)
	assert.False(t, el.Paused(), "active element plays")
	assert.InDelta(t, 1.0, el.CurrentTime(), 1e-9)

	te.step(5 * time.Second)
	st = te.Status()
	assert.Equal(t, transport.StateStopped, st.Transport.State)
	assert.Zero(t, st.Transport.Position, "ordinary playback rewinds at the end")
}

func TestRenderFollowsActiveClip(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	_, err := te.Import(context.Background(), "a.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)

	te.Tick()
	frame := decodePreview(t, te.Engine)
	px := frame.RGBAAt(16, 9)
	assert.Greater(t, px.R, uint8(200))
	assert.Zero(t, px.G)

	_, err = te.Seek(7)
	require.NoError(t, err)
	te.Tick()
	frame = decodePreview(t, te.Engine)
	assert.Equal(t, color.RGBA{A: 255}, frame.RGBAAt(0, 0), "no clip draws the placeholder")
	assert.True(t, te.video.get("a.mp4").Paused())
}

func decodePreview(t *testing.T, e *Engine) *image.RGBA {
	t.Helper()
	r, w := io.Pipe()
	go func() { w.CloseWithError(e.WritePreview(w)) }()
	img, _, err := image.Decode(r)
	require.NoError(t, err)
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				rgba.Set(x, y, img.At(x, y))
			}
		}
	}
	return rgba
}

func TestMixerFollowsTransport(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	_, err := te.Import(context.Background(), "m.wav", "", "A1", domain.KindAudio)
	require.NoError(t, err)

	_, err = te.Play()
	require.NoError(t, err)
	te.step(100 * time.Millisecond)
	el := te.audio.get("m.wav")
	require.NotNil(t, el)
	assert.False(t, el.Paused())

	_, err = te.Pause()
	require.NoError(t, err)
	te.step(100 * time.Millisecond)
	assert.True(t, el.Paused())
	assert.True(t, te.AudioReady())
}

func TestEditsMarkVersion(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	clip, err := te.Import(context.Background(), "b.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)

	moved, err := te.Move(clip.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, moved.Start, 1e-9)

	res, err := te.Split(clip.ID, 4)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, res.Right.ID, te.Status().Selected)

	require.NoError(t, te.Copy(res.Left.ID))
	pasted, err := te.Paste()
	require.NoError(t, err)
	assert.InDelta(t, res.Right.End(), pasted.Start, 1e-9)

	require.NoError(t, te.Delete(pasted.ID))
	assert.Len(t, te.Snapshot().Clips, 2)

	_, err = te.TrimEnd("missing", 1)
	assert.ErrorIs(t, err, timeline.ErrClipNotFound)
}

func TestLoadReplacesClips(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	_, err := te.Import(context.Background(), "a.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)
	snap := te.Snapshot()

	_, err = te.Import(context.Background(), "b.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)

	require.NoError(t, te.Select(snap.Clips[0].ID))
	snap.Tracks[1].Muted = true
	require.NoError(t, te.Load(snap))
	assert.Equal(t, snap.Clips, te.Snapshot().Clips)
	assert.True(t, te.Snapshot().Tracks[1].Muted, "stored mute flag is restored")
	assert.Empty(t, te.Status().Selected)

	bad := snap
	bad.Clips = []domain.Clip{{ID: "x", TrackID: "nope", Kind: domain.KindVideo, Duration: 1, SourceDuration: 1}}
	assert.Error(t, te.Load(bad))
}

type stubEncoder struct {
	mu      sync.Mutex
	frames  int
	samples int
	pcm     []int16
	onChunk encoder.ChunkFunc
}

func (s *stubEncoder) Start(_ context.Context, _ encoder.Config, onChunk encoder.ChunkFunc) (encoder.Session, error) {
	s.onChunk = onChunk
	return s, nil
}

func (s *stubEncoder) WriteFrame([]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	return nil
}

func (s *stubEncoder) WriteAudio(pcm []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples += len(pcm)
	s.pcm = append(s.pcm, pcm...)
	return nil
}

func (s *stubEncoder) Close() error {
	s.onChunk([]byte("artifact"))
	return nil
}

type allCaps struct{}

func (allCaps) Supports(context.Context, string) (bool, error) { return true, nil }

type memStorage struct {
	mu    sync.Mutex
	names []string
}

func (m *memStorage) SaveArtifact(_ context.Context, name string, r io.Reader) (string, int64, error) {
	n, err := io.Copy(io.Discard, r)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	return name, n, err
}
func (m *memStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("unsupported")
}
func (m *memStorage) List(context.Context, string) ([]string, error) { return nil, nil }
func (m *memStorage) ImportPath(name string) (string, error)         { return name, nil }
func (m *memStorage) Close() error                                   { return nil }

func (m *memStorage) saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

func TestExportEndToEnd(t *testing.T) {
	enc := &stubEncoder{}
	store := &memStorage{}
	te := newTestEngine(t, export.Options{
		Encoder:      enc,
		Capabilities: allCaps{},
		Storage:      store,
		FrameRate:    30,
	})
	_, err := te.Import(context.Background(), "a.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)
	_, err = te.Import(context.Background(), "m.wav", "", "A1", domain.KindAudio)
	require.NoError(t, err)
	require.Equal(t, 5.0, te.Status().Duration)

	_, err = te.Seek(2)
	require.NoError(t, err)

	status, err := te.StartExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, status.Width)

	_, err = te.StartExport(context.Background())
	assert.ErrorIs(t, err, export.ErrExportInProgress)

	_, err = te.Seek(1)
	assert.ErrorIs(t, err, ErrExporting, "seeks are locked during export")
	_, err = te.Stop()
	assert.ErrorIs(t, err, ErrExporting)

	for i := 0; i < 10000 && te.Exporter().State() == export.StateRecording; i++ {
		require.Empty(t, store.saved())
		te.step(time.Second / 60)
	}
	require.NoError(t, te.Exporter().Wait(context.Background()))

	saved := store.saved()
	require.Len(t, saved, 1)
	assert.Regexp(t, `^video_export_32x18_\d+\.mp4$`, saved[0])

	enc.mu.Lock()
	assert.Equal(t, 150, enc.frames, "5s at 30fps")
	assert.Equal(t, 5*media.SampleRate*media.Channels, enc.samples)
	enc.mu.Unlock()

	st := te.Status()
	assert.False(t, st.Transport.Exporting)
	assert.Zero(t, st.Transport.Position)
	assert.Equal(t, transport.StateStopped, st.Transport.State)
	assert.Equal(t, "idle", st.Export)

	_, err = te.Seek(1)
	assert.NoError(t, err)
}

func TestPlayRejectedWhilePreparingExport(t *testing.T) {
	te := newTestEngine(t, export.Options{})
	_, err := te.Import(context.Background(), "a.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)

	te.PrepareExport()
	st, err := te.Play()
	assert.ErrorIs(t, err, ErrExporting)
	assert.Equal(t, transport.StateStopped, st.State)

	te.step(time.Second)
	assert.Zero(t, te.Status().Transport.Position, "playhead holds until recording starts")

	te.FinishExport()
	st, err = te.Play()
	require.NoError(t, err)
	assert.Equal(t, transport.StatePlaying, st.State)
}

func TestExportKeepsAudioUpToClipEnd(t *testing.T) {
	enc := &stubEncoder{}
	te := newTestEngine(t, export.Options{
		Encoder:      enc,
		Capabilities: allCaps{},
		Storage:      &memStorage{},
		FrameRate:    30,
	})
	_, err := te.Import(context.Background(), "m.wav", "", "A1", domain.KindAudio)
	require.NoError(t, err)
	require.Equal(t, 3.0, te.Status().Duration)

	_, err = te.StartExport(context.Background())
	require.NoError(t, err)
	for i := 0; i < 1000 && te.Exporter().State() == export.StateRecording; i++ {
		te.step(70 * time.Millisecond)
	}
	require.NoError(t, te.Exporter().Wait(context.Background()))

	enc.mu.Lock()
	defer enc.mu.Unlock()
	require.Len(t, enc.pcm, 3*media.SampleRate*media.Channels)
	for i, s := range enc.pcm {
		if s == 0 {
			t.Fatalf("silent sample at %.4fs", float64(i/media.Channels)/media.SampleRate)
		}
	}
}

func TestExportSilencesGapBetweenClips(t *testing.T) {
	enc := &stubEncoder{}
	te := newTestEngine(t, export.Options{
		Encoder:      enc,
		Capabilities: allCaps{},
		Storage:      &memStorage{},
		FrameRate:    30,
	})
	_, err := te.Import(context.Background(), "m.wav", "", "A1", domain.KindAudio)
	require.NoError(t, err)
	_, err = te.Import(context.Background(), "a.mp4", "", "V1", domain.KindVideo)
	require.NoError(t, err)
	require.Equal(t, 5.0, te.Status().Duration)

	_, err = te.StartExport(context.Background())
	require.NoError(t, err)
	for i := 0; i < 1000 && te.Exporter().State() == export.StateRecording; i++ {
		te.step(70 * time.Millisecond)
	}
	require.NoError(t, te.Exporter().Wait(context.Background()))

	enc.mu.Lock()
	defer enc.mu.Unlock()
	split := 3 * media.SampleRate * media.Channels
	require.Len(t, enc.pcm, 5*media.SampleRate*media.Channels)
	for i, s := range enc.pcm {
		if i < split {
			require.Equal(t, int16(100), s, "sample %d inside the clip", i)
		} else {
			require.Zero(t, s, "sample %d after the clip", i)
		}
	}
}
