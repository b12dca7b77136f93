package project

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/timeline-editor/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "projects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Tracks: []domain.Track{
			{ID: "V1", Kind: domain.KindVideo, Name: "Video 1"},
			{ID: "A1", Kind: domain.KindAudio, Name: "Audio 1", Muted: true},
		},
		Clips: []domain.Clip{
			{ID: "b", TrackID: "V1", Kind: domain.KindVideo, Source: "/media/b.mp4", Name: "b.mp4",
				Start: 2, Duration: 3, Offset: 2, SourceDuration: 5, Width: 1920, Height: 1080},
			{ID: "a", TrackID: "A1", Kind: domain.KindAudio, Source: "/media/a.wav", Name: "a.wav",
				Start: 0, Duration: 4.5, Offset: 0.25, SourceDuration: 12},
		},
	}
}

func TestSaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot()
	require.NoError(t, s.Save(ctx, "demo", snap))

	got, err := s.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, snap, got, "order and every field survive")
}

func TestSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "demo", sampleSnapshot()))

	smaller := sampleSnapshot()
	smaller.Clips = smaller.Clips[:1]
	require.NoError(t, s.Save(ctx, "demo", smaller))

	got, err := s.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, got.Clips, 1)
}

func TestLoadEmptyProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "empty", domain.Snapshot{}))

	got, err := s.Load(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got.Clips)
	assert.NotNil(t, got.Clips)
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "one", sampleSnapshot()))
	require.NoError(t, s.Save(ctx, "two", domain.Snapshot{}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	counts := map[string]int{}
	for _, p := range list {
		counts[p.Name] = p.Clips
		assert.False(t, p.UpdatedAt.IsZero())
	}
	assert.Equal(t, map[string]int{"one": 2, "two": 0}, counts)

	require.NoError(t, s.Delete(ctx, "one"))
	_, err = s.Load(ctx, "one")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "one"), ErrNotFound)

	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSaveRequiresName(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Save(context.Background(), "", domain.Snapshot{}))
}
