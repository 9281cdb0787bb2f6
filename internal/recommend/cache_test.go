package recommend

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

func batch(prefix string, n int) []domain.Recommendation {
	recs := make([]domain.Recommendation, n)
	for i := range recs {
		q := fmt.Sprintf("%s-%d", prefix, i)
		recs[i] = domain.Recommendation{Title: q, PlaybackQuery: q, BatchID: prefix}
	}
	return recs
}

func TestCache_DedupByPlaybackQuery(t *testing.T) {
	c := NewCache(10, 3)

	assert.Equal(t, 2, c.AddBatch(batch("a", 2)))
	dupes := append(batch("a", 1), batch("b", 1)...)
	dupes = append(dupes, dupes[1])
	assert.Equal(t, 1, c.AddBatch(dupes))

	assert.Equal(t, 3, c.Len())
	got := c.Recommendations()
	assert.Equal(t, []string{"a-0", "a-1", "b-0"}, []string{got[0].PlaybackQuery, got[1].PlaybackQuery, got[2].PlaybackQuery})
}

func TestCache_SkipsEmptyPlaybackQuery(t *testing.T) {
	c := NewCache(10, 3)
	assert.Equal(t, 0, c.AddBatch([]domain.Recommendation{{Title: "no query"}}))
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsOldestBatchOnOverflow(t *testing.T) {
	c := NewCache(DefaultMaxRecommendations, DefaultPerSong)

	for i := 0; i < 14; i++ {
		c.AddBatch(batch(fmt.Sprintf("song%02d", i), DefaultPerSong))
	}
	require.Equal(t, 98, c.Len())

	c.AddBatch(batch("song14", DefaultPerSong))

	assert.Equal(t, 98, c.Len())
	assert.LessOrEqual(t, c.Len(), c.MaxSize())
	first, err := c.At(0)
	require.NoError(t, err)
	assert.Equal(t, "song01", first.BatchID)

	// the evicted queries may be added again
	assert.Equal(t, 1, c.AddBatch(batch("song00", 1)))
}

func TestCache_EvictionStepIsConstant(t *testing.T) {
	c := NewCache(DefaultMaxRecommendations, DefaultPerSong)
	c.AddBatch(batch("fill", DefaultMaxRecommendations))
	require.Equal(t, DefaultMaxRecommendations, c.Len())

	c.AddBatch(batch("one", 1))

	assert.Equal(t, DefaultMaxRecommendations-DefaultPerSong+1, c.Len())
	first, err := c.At(0)
	require.NoError(t, err)
	assert.Equal(t, "fill-7", first.PlaybackQuery)
}

func TestCache_LargeBatchEvictsRepeatedly(t *testing.T) {
	c := NewCache(10, 3)
	c.AddBatch(batch("x", 25))

	assert.Equal(t, 10, c.Len())
	first, _ := c.At(0)
	assert.Equal(t, "x-15", first.PlaybackQuery)
}

func TestCache_AtOutOfRange(t *testing.T) {
	c := NewCache(0, 0)
	assert.Equal(t, DefaultMaxRecommendations, c.MaxSize())
	assert.Equal(t, DefaultPerSong, c.PerSong())

	_, err := c.At(0)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
	_, err = c.At(-1)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
}

func TestCache_LastProcessedAndClear(t *testing.T) {
	c := NewCache(10, 3)

	assert.False(t, c.IsLastProcessed("", ""))
	c.SetLastProcessed("Hello", "Adele")
	assert.True(t, c.IsLastProcessed("Hello", "Adele"))
	assert.False(t, c.IsLastProcessed("Hello", "Someone"))

	c.AddBatch(batch("a", 2))
	c.Clear()

	assert.Equal(t, 0, c.Len())
	title, artist := c.LastProcessed()
	assert.Empty(t, title)
	assert.Empty(t, artist)
	assert.Equal(t, 2, c.AddBatch(batch("a", 2)))
}

func TestCache_ConcurrentReadersAndWriter(t *testing.T) {
	c := NewCache(50, 5)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			c.AddBatch(batch(fmt.Sprintf("w%d", i), 5))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assert.LessOrEqual(t, len(c.Recommendations()), 50)
		}
	}()
	wg.Wait()

	assert.Equal(t, 50, c.Len())
}
