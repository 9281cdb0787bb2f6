package recommend

import (
	"sync"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// Cache limits.
const (
	DefaultMaxRecommendations = 100
	DefaultPerSong            = 7
)

// Cache is the rolling queue of recommendations, oldest first.
// Entries are unique by PlaybackQuery. When a batch pushes the length over the
// maximum, PerSong entries are dropped from the front until it fits again.
//
// Thread-safety: every method holds the mutex only for in-memory work.
type Cache struct {
	maxSize int
	perSong int

	items []domain.Recommendation
	seen  map[string]struct{}

	lastTitle  string
	lastArtist string

	mu sync.Mutex
}

// NewCache creates a cache. Non-positive limits fall back to the defaults.
func NewCache(maxSize, perSong int) *Cache {
	if maxSize < 1 {
		maxSize = DefaultMaxRecommendations
	}
	if perSong < 1 {
		perSong = DefaultPerSong
	}
	return &Cache{
		maxSize: maxSize,
		perSong: perSong,
		seen:    make(map[string]struct{}),
	}
}

// AddBatch appends the entries of batch whose PlaybackQuery is not yet present,
// as one unit, then evicts from the front. Returns how many entries were added.
func (c *Cache) AddBatch(batch []domain.Recommendation) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, rec := range batch {
		if rec.PlaybackQuery == "" {
			continue
		}
		if _, dup := c.seen[rec.PlaybackQuery]; dup {
			continue
		}
		c.seen[rec.PlaybackQuery] = struct{}{}
		c.items = append(c.items, rec)
		added++
	}

	c.evict()
	return added
}

// evict drops a constant perSong entries at a time, regardless of how large the
// oldest batch actually was.
// TODO: track batch boundaries by BatchID so a short batch cannot leave a partial batch behind.
func (c *Cache) evict() {
	for len(c.items) > c.maxSize {
		n := min(c.perSong, len(c.items))
		for _, rec := range c.items[:n] {
			delete(c.seen, rec.PlaybackQuery)
		}
		c.items = append([]domain.Recommendation(nil), c.items[n:]...)
	}
}

// Recommendations returns a copy of the cached entries, oldest first.
func (c *Cache) Recommendations() []domain.Recommendation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Recommendation, len(c.items))
	copy(out, c.items)
	return out
}

// At returns the entry at index i.
func (c *Cache) At(i int) (domain.Recommendation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.items) {
		return domain.Recommendation{}, domain.ErrInvalidIndex
	}
	return c.items[i], nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear drops every entry and forgets the last processed song.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.seen = make(map[string]struct{})
	c.lastTitle, c.lastArtist = "", ""
}

// SetLastProcessed records the song whose recommendations were most recently stored.
func (c *Cache) SetLastProcessed(title, artist string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTitle, c.lastArtist = title, artist
}

// LastProcessed returns the song recorded by SetLastProcessed.
func (c *Cache) LastProcessed() (title, artist string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTitle, c.lastArtist
}

// IsLastProcessed reports whether title and artist match the last processed song.
func (c *Cache) IsLastProcessed(title, artist string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (c.lastTitle != "" || c.lastArtist != "") && c.lastTitle == title && c.lastArtist == artist
}

// MaxSize returns the configured maximum length.
func (c *Cache) MaxSize() int { return c.maxSize }

// PerSong returns the eviction step and per-batch cap.
func (c *Cache) PerSong() int { return c.perSong }
