package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

func TestHistoryRepository_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(0)

	recent, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	for _, title := range []string{"Song 1", "Song 2", "Song 3"} {
		require.NoError(t, repo.Append(ctx, domain.PlayedSong{Title: title, Artist: "Artist"}))
	}

	recent, err = repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Song 2", recent[0].Title)
	assert.Equal(t, "Song 3", recent[1].Title)

	all, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistoryRepository_OverwritesOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(2)

	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Append(ctx, domain.PlayedSong{Title: title}))
	}

	all, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Title)
}

func TestHistoryRepository_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(0)

	keywords := []string{"hello"}
	require.NoError(t, repo.Append(ctx, domain.PlayedSong{Title: "Hello", Keywords: keywords}))
	keywords[0] = "changed"

	all, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, all[0].Keywords)
}

func TestHistoryRepository_Clear(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(0)

	require.NoError(t, repo.Append(ctx, domain.PlayedSong{Title: "x"}))
	require.NoError(t, repo.Clear(ctx))

	all, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}
