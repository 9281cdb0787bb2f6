package library

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

func track(path, title, artist, album, genre string) domain.Track {
	return domain.Track{Path: path, Title: title, Artist: artist, Album: album, Genre: genre}
}

func sampleIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex()
	require.True(t, idx.Add(track("/m/1.mp3", "Bohemian Rhapsody", "Queen", "A Night at the Opera", "Rock")))
	require.True(t, idx.Add(track("/m/2.mp3", "Hey Jude", "The Beatles", "Hey Jude", "Rock")))
	require.True(t, idx.Add(track("/m/3.mp3", "Thriller", "Michael Jackson", "Thriller", "Pop")))
	require.True(t, idx.Add(track("/m/4.mp3", "Love of My Life", "Queen", "A Night at the Opera", "Rock")))
	return idx
}

// assertConsistent checks that every secondary index entry resolves to a stored
// track filed under the same key and that every stored track is indexed once.
func assertConsistent(t *testing.T, idx *Index) {
	t.Helper()
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	require.Len(t, idx.order, len(idx.tracks))

	check := func(name string, index map[string][]string, field func(*domain.Track) string) {
		seen := 0
		for key, paths := range index {
			assert.NotEmpty(t, paths, "%s index has empty group %q", name, key)
			for _, p := range paths {
				tr, ok := idx.tracks[p]
				if assert.True(t, ok, "%s index references missing path %s", name, p) {
					assert.Equal(t, key, field(tr))
				}
				seen++
			}
		}
		assert.Equal(t, len(idx.tracks), seen, "%s index size", name)
	}

	check("artist", idx.byArtist, func(t *domain.Track) string { return t.Artist })
	check("album", idx.byAlbum, func(t *domain.Track) string { return t.Album })
	check("genre", idx.byGenre, func(t *domain.Track) string { return t.Genre })

	var total time.Duration
	for _, tr := range idx.tracks {
		total += tr.Duration
	}
	assert.Equal(t, total, idx.totalDuration)
}

func TestIndex_AddDuplicateIsNoop(t *testing.T) {
	idx := sampleIndex(t)
	before := idx.Stats()

	dup := track("/m/1.mp3", "Other Title", "Other Artist", "Other Album", "Jazz")
	assert.False(t, idx.Add(dup))

	assert.Equal(t, before, idx.Stats())
	got, ok := idx.Get("/m/1.mp3")
	require.True(t, ok)
	assert.Equal(t, "Bohemian Rhapsody", got.Title)
	assert.Empty(t, idx.ByArtist("Other Artist"))
	assertConsistent(t, idx)
}

func TestIndex_AddRejectsEmptyPath(t *testing.T) {
	idx := NewIndex()
	assert.False(t, idx.Add(domain.Track{Title: "x"}))
	assert.Equal(t, 0, idx.Len())
}

func TestIndex_AddStampsAddedAt(t *testing.T) {
	idx := NewIndex()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	idx.now = func() time.Time { return fixed }

	idx.Add(track("/a.mp3", "A", "X", "Y", "Z"))
	got, _ := idx.Get("/a.mp3")
	assert.Equal(t, fixed, got.AddedAt)
}

func TestIndex_ManyInsertsStayConsistent(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 200; i++ {
		tr := track(fmt.Sprintf("/m/%d.mp3", i%150), fmt.Sprintf("T%d", i),
			fmt.Sprintf("artist-%d", i%7), fmt.Sprintf("album-%d", i%11), fmt.Sprintf("genre-%d", i%3))
		tr.Duration = time.Duration(i) * time.Second
		idx.Add(tr)
	}

	assert.Equal(t, 150, idx.Len())
	assertConsistent(t, idx)
}

func TestIndex_Remove(t *testing.T) {
	idx := sampleIndex(t)

	assert.True(t, idx.Remove("/m/3.mp3"))
	assert.False(t, idx.Has("/m/3.mp3"))
	assert.Empty(t, idx.ByArtist("Michael Jackson"))
	assert.NotContains(t, idx.Genres(), "Pop")
	assert.Equal(t, 3, idx.Len())
	assertConsistent(t, idx)

	before := idx.Stats()
	assert.False(t, idx.Remove("/m/missing.mp3"))
	assert.Equal(t, before, idx.Stats())
}

func TestIndex_RemoveKeepsGroupOrder(t *testing.T) {
	idx := sampleIndex(t)
	idx.Add(track("/m/5.mp3", "Somebody to Love", "Queen", "A Day at the Races", "Rock"))

	idx.Remove("/m/4.mp3")

	paths := func(ts []domain.Track) []string {
		out := make([]string, len(ts))
		for i, tr := range ts {
			out[i] = tr.Path
		}
		return out
	}
	assert.Equal(t, []string{"/m/1.mp3", "/m/5.mp3"}, paths(idx.ByArtist("Queen")))
	assert.Equal(t, []string{"/m/1.mp3", "/m/2.mp3", "/m/5.mp3"}, paths(idx.ByGenre("Rock")))
}

func TestIndex_Update(t *testing.T) {
	idx := sampleIndex(t)

	got, ok := idx.Update("/m/3.mp3", func(tr *domain.Track) {
		tr.Artist = "Queen"
		tr.Path = "/elsewhere.mp3"
	})
	require.True(t, ok)
	assert.Equal(t, "/m/3.mp3", got.Path)
	assert.Len(t, idx.ByArtist("Queen"), 3)
	assert.Empty(t, idx.ByArtist("Michael Jackson"))
	assertConsistent(t, idx)

	_, ok = idx.Update("/nope.mp3", func(*domain.Track) {})
	assert.False(t, ok)
}

func TestIndex_Search(t *testing.T) {
	idx := sampleIndex(t)

	assert.Len(t, idx.Search(""), 4)
	assert.Len(t, idx.Search("queen"), 2)
	assert.Len(t, idx.Search("OPERA"), 2)
	assert.Len(t, idx.Search("pop"), 1)
	assert.Empty(t, idx.Search("zzz"))
}

func TestIndex_LookupsAreExact(t *testing.T) {
	idx := sampleIndex(t)

	assert.Len(t, idx.ByArtist("Queen"), 2)
	assert.Empty(t, idx.ByArtist("queen"))
	assert.Len(t, idx.ByAlbum("Thriller"), 1)
	assert.Len(t, idx.ByGenre("Rock"), 3)

	assert.Equal(t, []string{"Michael Jackson", "Queen", "The Beatles"}, idx.Artists())
	assert.Equal(t, []string{"Pop", "Rock"}, idx.Genres())
	assert.Len(t, idx.AlbumMap()["A Night at the Opera"], 2)
}

func TestIndex_ReturnsCopies(t *testing.T) {
	idx := sampleIndex(t)

	all := idx.All()
	all[0].Title = "mutated"

	got, _ := idx.Get("/m/1.mp3")
	assert.Equal(t, "Bohemian Rhapsody", got.Title)
}

func TestIndex_MostAndRecentlyPlayed(t *testing.T) {
	idx := sampleIndex(t)
	now := time.Now()

	idx.Update("/m/2.mp3", func(tr *domain.Track) { tr.PlayCount = 5; tr.LastPlayed = now.Add(-time.Hour) })
	idx.Update("/m/3.mp3", func(tr *domain.Track) { tr.PlayCount = 9; tr.LastPlayed = now.Add(-2 * time.Hour) })
	idx.Update("/m/4.mp3", func(tr *domain.Track) { tr.PlayCount = 1; tr.LastPlayed = now })

	most := idx.MostPlayed(2)
	require.Len(t, most, 2)
	assert.Equal(t, "/m/3.mp3", most[0].Path)
	assert.Equal(t, "/m/2.mp3", most[1].Path)

	recent := idx.RecentlyPlayed(10)
	require.Len(t, recent, 4)
	assert.Equal(t, []string{"/m/4.mp3", "/m/2.mp3", "/m/3.mp3", "/m/1.mp3"},
		[]string{recent[0].Path, recent[1].Path, recent[2].Path, recent[3].Path})

	assert.Empty(t, idx.MostPlayed(0))
}

func TestIndex_RecentlyAdded(t *testing.T) {
	idx := sampleIndex(t)

	added := idx.RecentlyAdded(2)
	require.Len(t, added, 2)
	assert.Equal(t, "/m/3.mp3", added[0].Path)
	assert.Equal(t, "/m/4.mp3", added[1].Path)

	assert.Len(t, idx.RecentlyAdded(100), 4)
	assert.Empty(t, idx.RecentlyAdded(-1))
}

func TestIndex_StatsAndClear(t *testing.T) {
	idx := NewIndex()
	a := track("/a.mp3", "A", "X", "Album1", "Rock")
	a.Duration = 3 * time.Minute
	b := track("/b.mp3", "B", "Y", "Album1", "Rock")
	b.Duration = 2 * time.Minute
	idx.Add(a)
	idx.Add(b)

	assert.Equal(t, domain.LibraryStats{Tracks: 2, Artists: 2, Albums: 1, Genres: 1, TotalDuration: 5 * time.Minute}, idx.Stats())

	assert.Equal(t, 2, idx.Clear())
	assert.Equal(t, domain.LibraryStats{}, idx.Stats())
	assert.Empty(t, idx.Artists())
	assertConsistent(t, idx)
}

func TestIndex_Replace(t *testing.T) {
	idx := sampleIndex(t)
	fixed := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	idx.now = func() time.Time { return fixed }

	removed := idx.Replace([]domain.Track{
		track("/n/1.mp3", "Yellow", "Coldplay", "Parachutes", "Rock"),
		track("/n/1.mp3", "Yellow again", "Coldplay", "Parachutes", "Rock"),
		track("", "No Path", "Nobody", "None", "None"),
		track("/n/2.mp3", "Hello", "Adele", "25", "Pop"),
	})

	assert.Equal(t, 4, removed)
	assert.Equal(t, 2, idx.Len())
	assert.False(t, idx.Has("/m/1.mp3"))

	got, ok := idx.Get("/n/1.mp3")
	require.True(t, ok)
	assert.Equal(t, "Yellow", got.Title)
	assert.Equal(t, fixed, got.AddedAt)
	assert.Equal(t, []string{"Adele", "Coldplay"}, idx.Artists())
	assertConsistent(t, idx)

	assert.Equal(t, 2, idx.Replace(nil))
	assert.Zero(t, idx.Len())
	assertConsistent(t, idx)
}

func TestIndex_ReplaceIsNeverSeenHalfDone(t *testing.T) {
	small := make([]domain.Track, 3)
	for i := range small {
		small[i] = track(fmt.Sprintf("/s/%d.mp3", i), "S", "Small", "S", "Rock")
	}
	large := make([]domain.Track, 200)
	for i := range large {
		large[i] = track(fmt.Sprintf("/l/%d.mp3", i), "L", "Large", "L", "Pop")
	}

	idx := NewIndex()
	idx.Replace(small)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			assert.Contains(t, []int{len(small), len(large)}, idx.Len())
			assert.Contains(t, []int{len(small), len(large)}, len(idx.All()))
		}
	}()

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			idx.Replace(large)
		} else {
			idx.Replace(small)
		}
	}
	close(done)
	wg.Wait()

	assertConsistent(t, idx)
}
