// Package library holds the in-memory track catalog and its derived projections.
package library

import (
	"cmp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// Index is the authoritative store of known tracks.
// Tracks are keyed by path and kept in insertion order; artist, album and genre
// lookups go through secondary indices that always agree with the primary store.
//
// Thread-safety: All methods are safe for concurrent use. Readers never observe
// a partially applied mutation.
type Index struct {
	tracks map[string]*domain.Track
	order  []string

	byArtist map[string][]string
	byAlbum  map[string][]string
	byGenre  map[string][]string

	totalDuration time.Duration

	// now stamps AddedAt on tracks inserted without one
	now func() time.Time

	mu sync.RWMutex
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	idx := &Index{now: time.Now}
	idx.reset()
	return idx
}

func (idx *Index) reset() {
	idx.tracks = make(map[string]*domain.Track)
	idx.order = nil
	idx.byArtist = make(map[string][]string)
	idx.byAlbum = make(map[string][]string)
	idx.byGenre = make(map[string][]string)
	idx.totalDuration = 0
}

// Add inserts track if its path is not already present and reports whether it did.
// A duplicate path leaves the index untouched.
func (idx *Index) Add(track domain.Track) bool {
	if track.Path == "" {
		return false
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.tracks[track.Path]; exists {
		return false
	}

	if track.AddedAt.IsZero() {
		track.AddedAt = idx.now()
	}
	t := track
	idx.tracks[t.Path] = &t
	idx.order = append(idx.order, t.Path)
	idx.indexTrack(&t)
	idx.totalDuration += t.Duration

	return true
}

func (idx *Index) indexTrack(t *domain.Track) {
	idx.byArtist[t.Artist] = append(idx.byArtist[t.Artist], t.Path)
	idx.byAlbum[t.Album] = append(idx.byAlbum[t.Album], t.Path)
	idx.byGenre[t.Genre] = append(idx.byGenre[t.Genre], t.Path)
}

// rebuild recomputes every secondary index and the aggregates from the primary store.
func (idx *Index) rebuild() {
	idx.byArtist = make(map[string][]string)
	idx.byAlbum = make(map[string][]string)
	idx.byGenre = make(map[string][]string)
	idx.totalDuration = 0

	for _, path := range idx.order {
		t := idx.tracks[path]
		idx.indexTrack(t)
		idx.totalDuration += t.Duration
	}
}

// Remove deletes the track at path and reports whether it existed.
func (idx *Index) Remove(path string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.tracks[path]; !exists {
		return false
	}

	delete(idx.tracks, path)
	idx.order = slices.DeleteFunc(idx.order, func(p string) bool { return p == path })
	idx.rebuild()

	return true
}

// Update applies fn to the stored track at path and returns the result.
// Indices are rebuilt when fn changes an indexed field. The path cannot be changed.
func (idx *Index) Update(path string, fn func(*domain.Track)) (domain.Track, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	t, exists := idx.tracks[path]
	if !exists {
		return domain.Track{}, false
	}

	before := *t
	fn(t)
	t.Path = before.Path

	if t.Artist != before.Artist || t.Album != before.Album ||
		t.Genre != before.Genre || t.Duration != before.Duration {
		idx.rebuild()
	}

	return *t, true
}

// Clear empties the index and returns how many tracks it held.
func (idx *Index) Clear() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := len(idx.order)
	idx.reset()
	return n
}

// Replace swaps the whole catalog for tracks in one step and returns how many
// tracks were dropped. Readers see either the old catalog or the new one.
// Tracks without a path and repeated paths are skipped.
func (idx *Index) Replace(tracks []domain.Track) int {
	fresh := make(map[string]*domain.Track, len(tracks))
	order := make([]string, 0, len(tracks))
	now := idx.now()
	for _, track := range tracks {
		if track.Path == "" {
			continue
		}
		if _, dup := fresh[track.Path]; dup {
			continue
		}
		if track.AddedAt.IsZero() {
			track.AddedAt = now
		}
		t := track
		fresh[t.Path] = &t
		order = append(order, t.Path)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := len(idx.order)
	idx.tracks = fresh
	idx.order = order
	idx.rebuild()
	return removed
}

// Get returns a copy of the track at path.
func (idx *Index) Get(path string) (domain.Track, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	t, ok := idx.tracks[path]
	if !ok {
		return domain.Track{}, false
	}
	return *t, true
}

// Has reports whether a track with path is indexed.
func (idx *Index) Has(path string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, ok := idx.tracks[path]
	return ok
}

// Len returns the number of tracks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.order)
}

// All returns copies of every track in insertion order.
func (idx *Index) All() []domain.Track {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.collect(idx.order)
}

func (idx *Index) collect(paths []string) []domain.Track {
	out := make([]domain.Track, 0, len(paths))
	for _, p := range paths {
		out = append(out, *idx.tracks[p])
	}
	return out
}

// Search returns the tracks whose title, artist, album or genre contains query,
// ignoring case. An empty query matches every track.
func (idx *Index) Search(query string) []domain.Track {
	return Search(idx.All(), query)
}

// Search filters tracks by a case-insensitive substring match on title, artist,
// album and genre, preserving order.
func Search(tracks []domain.Track, query string) []domain.Track {
	if query == "" {
		return slices.Clone(tracks)
	}
	q := strings.ToLower(query)

	out := make([]domain.Track, 0)
	for _, t := range tracks {
		if matches(t, q) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t domain.Track, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(t.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(t.Artist), lowerQuery) ||
		strings.Contains(strings.ToLower(t.Album), lowerQuery) ||
		strings.Contains(strings.ToLower(t.Genre), lowerQuery)
}

// ByArtist returns the tracks of artist in insertion order.
func (idx *Index) ByArtist(artist string) []domain.Track {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.collect(idx.byArtist[artist])
}

// ByAlbum returns the tracks of album in insertion order.
func (idx *Index) ByAlbum(album string) []domain.Track {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.collect(idx.byAlbum[album])
}

// ByGenre returns the tracks of genre in insertion order.
func (idx *Index) ByGenre(genre string) []domain.Track {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.collect(idx.byGenre[genre])
}

// Artists returns the known artist names, sorted.
func (idx *Index) Artists() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return sortedKeys(idx.byArtist)
}

// Albums returns the known album names, sorted.
func (idx *Index) Albums() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return sortedKeys(idx.byAlbum)
}

// Genres returns the known genres, sorted.
func (idx *Index) Genres() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return sortedKeys(idx.byGenre)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AlbumMap groups the tracks by album.
func (idx *Index) AlbumMap() map[string][]domain.Track {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string][]domain.Track, len(idx.byAlbum))
	for album, paths := range idx.byAlbum {
		out[album] = idx.collect(paths)
	}
	return out
}

// MostPlayed returns up to n tracks ordered by play count, highest first.
func (idx *Index) MostPlayed(n int) []domain.Track {
	tracks := idx.All()
	slices.SortStableFunc(tracks, func(a, b domain.Track) int {
		return cmp.Compare(b.PlayCount, a.PlayCount)
	})
	return head(tracks, n)
}

// RecentlyPlayed returns up to n tracks ordered by last played time, newest first.
// Tracks that were never played sort last.
func (idx *Index) RecentlyPlayed(n int) []domain.Track {
	tracks := idx.All()
	slices.SortStableFunc(tracks, func(a, b domain.Track) int {
		return b.LastPlayed.Compare(a.LastPlayed)
	})
	return head(tracks, n)
}

// RecentlyAdded returns the last n inserted tracks in insertion order, most recent last.
func (idx *Index) RecentlyAdded(n int) []domain.Track {
	if n <= 0 {
		return []domain.Track{}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	start := max(0, len(idx.order)-n)
	return idx.collect(idx.order[start:])
}

func head(tracks []domain.Track, n int) []domain.Track {
	if n <= 0 {
		return []domain.Track{}
	}
	if n < len(tracks) {
		return tracks[:n]
	}
	return tracks
}

// Stats returns the aggregate counters.
func (idx *Index) Stats() domain.LibraryStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return domain.LibraryStats{
		Tracks:        len(idx.order),
		Artists:       len(idx.byArtist),
		Albums:        len(idx.byAlbum),
		Genres:        len(idx.byGenre),
		TotalDuration: idx.totalDuration,
	}
}

// StatsOf computes aggregate counters for an arbitrary track slice.
func StatsOf(tracks []domain.Track) domain.LibraryStats {
	artists := make(map[string]struct{})
	albums := make(map[string]struct{})
	genres := make(map[string]struct{})

	stats := domain.LibraryStats{Tracks: len(tracks)}
	for _, t := range tracks {
		artists[t.Artist] = struct{}{}
		albums[t.Album] = struct{}{}
		genres[t.Genre] = struct{}{}
		stats.TotalDuration += t.Duration
	}
	stats.Artists = len(artists)
	stats.Albums = len(albums)
	stats.Genres = len(genres)
	return stats
}
