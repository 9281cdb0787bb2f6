package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/logger"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), Config{Path: filepath.Join(t.TempDir(), "library.db")}, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.db")

	store, err := New(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveTracks(ctx, []domain.Track{{Path: "/m/a.mp3", Title: "A"}}))
	require.NoError(t, store.Close())

	reopened, err := New(ctx, Config{Path: path}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	tracks, err := reopened.LoadTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "A", tracks[0].Title)
}

func TestTracks_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	played := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	added := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	tracks := []domain.Track{
		{Path: "/m/b.mp3", Title: "Beta", Artist: "X", Album: "One", Genre: "Rock", Year: 1999,
			Duration: 3*time.Minute + 21*time.Second, PlayCount: 4, LastPlayed: played, AddedAt: added},
		{Path: "/m/a.flac", Title: "Alpha", Artist: "Y", Album: "Two", Genre: "Jazz", AddedAt: added},
	}

	empty, err := store.LoadTracks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, store.SaveTracks(ctx, tracks))

	got, err := store.LoadTracks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "/m/b.mp3", got[0].Path, "insertion order is kept")
	assert.Equal(t, tracks[0].Duration, got[0].Duration)
	assert.Equal(t, 4, got[0].PlayCount)
	assert.True(t, played.Equal(got[0].LastPlayed))
	assert.True(t, added.Equal(got[0].AddedAt))
	assert.True(t, got[1].LastPlayed.IsZero())

	// saving again replaces the catalog
	require.NoError(t, store.SaveTracks(ctx, tracks[1:]))
	got, err = store.LoadTracks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha", got[0].Title)
}

func TestDeleteTrack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTracks(ctx, []domain.Track{{Path: "/a"}, {Path: "/b"}}))
	require.NoError(t, store.DeleteTrack(ctx, "/a"))
	require.NoError(t, store.DeleteTrack(ctx, "/missing"))

	got, err := store.LoadTracks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/b", got[0].Path)
}

func TestPlaylists(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Load(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)

	now := time.Now().UTC()
	first := &domain.Playlist{ID: "p1", Name: "Morning", CreatedAt: now, UpdatedAt: now,
		Tracks: []domain.Track{{Path: "/a", Title: "A", Duration: time.Minute}, {Path: "/b", Title: "B"}}}
	second := &domain.Playlist{ID: "p2", Name: "Evening", CreatedAt: now.Add(time.Second), UpdatedAt: now}

	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Save(ctx, first))

	loaded, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Morning", loaded.Name)
	require.Len(t, loaded.Tracks, 2)
	assert.Equal(t, time.Minute, loaded.Tracks[0].Duration)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID)
	assert.Equal(t, "p2", all[1].ID)

	// replacing rewrites the track list
	first.Name = "Renamed"
	first.Tracks = first.Tracks[1:]
	require.NoError(t, store.Save(ctx, first))
	loaded, err = store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	require.Len(t, loaded.Tracks, 1)
	assert.Equal(t, "B", loaded.Tracks[0].Title)

	require.NoError(t, store.Delete(ctx, "p1"))
	require.NoError(t, store.Delete(ctx, "p1"))
	_, err = store.Load(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)

	var validation *domain.ValidationError
	assert.ErrorAs(t, store.Save(ctx, &domain.Playlist{}), &validation)
}
