package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/logger"
)

func newRepo(t *testing.T, max int) (*HistoryRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	repo, err := NewHistoryRepository(Config{Path: path, MaxEntries: max}, logger.NewTestLogger())
	require.NoError(t, err)
	return repo, path
}

func song(i int) domain.PlayedSong {
	return domain.PlayedSong{
		Title:    fmt.Sprintf("Song %d", i),
		Artist:   "Band",
		Keywords: []string{"song"},
		PlayedAt: time.Unix(int64(1700000000+i), 0).UTC(),
	}
}

func TestHistory_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, 0)
	defer repo.Close()

	empty, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, song(i)))
	}

	recent, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "Song 2", recent[0].Title)
	assert.Equal(t, "Song 4", recent[2].Title)
	assert.True(t, song(4).PlayedAt.Equal(recent[2].PlayedAt))
	assert.Equal(t, []string{"song"}, recent[2].Keywords)

	none, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistory_TrimsOldest(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, 3)
	defer repo.Close()

	for i := 0; i < 6; i++ {
		require.NoError(t, repo.Append(ctx, song(i)))
	}

	all, err := repo.Recent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Song 3", all[0].Title)
}

func storedKeys(t *testing.T, repo *HistoryRepository) int {
	t.Helper()
	n := 0
	require.NoError(t, repo.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(historyBucket).Stats().KeyN
		return nil
	}))
	return n
}

func TestHistory_TrimKeepsBucketAtCap(t *testing.T) {
	ctx := context.Background()
	repo, path := newRepo(t, 4)

	for i := 0; i < 50; i++ {
		require.NoError(t, repo.Append(ctx, song(i)))
		assert.LessOrEqual(t, storedKeys(t, repo), 4)
	}
	assert.Equal(t, 4, storedKeys(t, repo))
	require.NoError(t, repo.Close())

	smaller, err := NewHistoryRepository(Config{Path: path, MaxEntries: 2}, nil)
	require.NoError(t, err)
	defer smaller.Close()

	require.NoError(t, smaller.Append(ctx, song(50)))
	assert.Equal(t, 2, storedKeys(t, smaller))

	all, err := smaller.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Song 49", all[0].Title)
	assert.Equal(t, "Song 50", all[1].Title)
}

func TestHistory_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	repo, path := newRepo(t, 0)
	require.NoError(t, repo.Append(ctx, song(1)))
	require.NoError(t, repo.Close())

	reopened, err := NewHistoryRepository(Config{Path: path}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Song 1", all[0].Title)
}

func TestHistory_Clear(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, 0)
	defer repo.Close()

	require.NoError(t, repo.Append(ctx, song(1)))
	require.NoError(t, repo.Clear(ctx))

	all, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, repo.Append(ctx, song(2)))
	all, err = repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHistory_RequiresPath(t *testing.T) {
	_, err := NewHistoryRepository(Config{}, nil)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}
