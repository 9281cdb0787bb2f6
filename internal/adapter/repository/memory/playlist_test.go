package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

func TestPlaylistRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaylistRepository()

	playlist := &domain.Playlist{
		ID:   "playlist1",
		Name: "My Favorites",
		Tracks: []domain.Track{
			{Path: "/music/song1.mp3", Title: "Song 1"},
			{Path: "/music/song2.mp3", Title: "Song 2"},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	require.NoError(t, repo.Save(ctx, playlist))

	loaded, err := repo.Load(ctx, "playlist1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "My Favorites", loaded.Name)
	require.Len(t, loaded.Tracks, 2)
	assert.Equal(t, "Song 1", loaded.Tracks[0].Title)
	assert.True(t, repo.Exists("playlist1"))

	// the stored copy is independent of the caller's playlist
	playlist.Tracks[0].Title = "Mutated"
	loaded.Tracks[1].Title = "Mutated too"
	again, err := repo.Load(ctx, "playlist1")
	require.NoError(t, err)
	assert.Equal(t, "Song 1", again.Tracks[0].Title)
	assert.Equal(t, "Song 2", again.Tracks[1].Title)
}

func TestPlaylistRepository_Load_NotFound(t *testing.T) {
	_, err := NewPlaylistRepository().Load(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestPlaylistRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaylistRepository()

	require.NoError(t, repo.Save(ctx, &domain.Playlist{ID: "p", Name: "Original Name"}))
	require.NoError(t, repo.Save(ctx, &domain.Playlist{ID: "p", Name: "Updated Name"}))

	loaded, err := repo.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", loaded.Name)

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPlaylistRepository_LoadAllOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaylistRepository()
	base := time.Now()

	require.NoError(t, repo.Save(ctx, &domain.Playlist{ID: "c", CreatedAt: base.Add(2 * time.Minute)}))
	require.NoError(t, repo.Save(ctx, &domain.Playlist{ID: "a", CreatedAt: base}))
	require.NoError(t, repo.Save(ctx, &domain.Playlist{ID: "b", CreatedAt: base.Add(time.Minute)}))

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestPlaylistRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaylistRepository()

	require.NoError(t, repo.Save(ctx, &domain.Playlist{ID: "p"}))
	require.NoError(t, repo.Delete(ctx, "p"))
	require.NoError(t, repo.Delete(ctx, "p"))

	assert.False(t, repo.Exists("p"))

	var validation *domain.ValidationError
	assert.ErrorAs(t, repo.Save(ctx, &domain.Playlist{}), &validation)
}
