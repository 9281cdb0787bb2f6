// Package recommend derives song suggestions from listening history and keeps
// them in a bounded, batch-evicting cache.
package recommend

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "a": {}, "an": {},
}

// ExtractKeywords lowercases text, drops punctuation and stopwords and returns
// the remaining words in order of first appearance.
func ExtractKeywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)

	seen := make(map[string]struct{})
	keywords := make([]string, 0)
	for _, word := range strings.Fields(cleaned) {
		if _, stop := stopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// genreHints maps artist-name fragments to a genre, checked in order.
var genreHints = []struct {
	genre     string
	fragments []string
}{
	{"Rock", []string{"rock", "metal", "punk"}},
	{"Pop", []string{"pop", "boy", "girl"}},
	{"Hip Hop", []string{"hip", "rap", "hop"}},
	{"Electronic", []string{"electronic", "edm", "dj"}},
	{"Jazz", []string{"jazz", "blues"}},
	{"Country", []string{"country", "folk"}},
	{"Classical", []string{"classical", "orchestra"}},
}

// GuessGenre infers a genre from fragments of the artist name.
// Returns "" when nothing matches.
func GuessGenre(artist string) string {
	lower := strings.ToLower(artist)
	for _, hint := range genreHints {
		for _, fragment := range hint.fragments {
			if strings.Contains(lower, fragment) {
				return hint.genre
			}
		}
	}
	return ""
}

// NewPlayedSong builds a history entry, guessing the genre when it is empty or unknown.
// The unknown-artist placeholder is stored as an empty artist.
func NewPlayedSong(title, artist, genre string, playedAt time.Time) domain.PlayedSong {
	if artist == domain.UnknownArtist {
		artist = ""
	}
	if genre == "" || genre == domain.UnknownGenre {
		genre = GuessGenre(artist)
	}
	return domain.PlayedSong{
		Title:    title,
		Artist:   artist,
		Genre:    genre,
		Keywords: ExtractKeywords(title + " " + artist),
		PlayedAt: playedAt,
	}
}

const dayMs = 24 * 60 * 60 * 1000

// Similarity scores how related two songs are, in [0,1].
// A shared non-empty artist scores 1.0 and a shared non-empty genre 0.8. Otherwise
// the keyword Jaccard index is weighted by how close together the songs were played,
// decaying linearly to a floor of 0.1 at a gap of one day.
// Placeholder artist and genre values count as empty.
func Similarity(a, b domain.PlayedSong) float64 {
	if known(a.Artist, domain.UnknownArtist) && a.Artist == b.Artist {
		return 1.0
	}
	if known(a.Genre, domain.UnknownGenre) && a.Genre == b.Genre {
		return 0.8
	}

	return jaccard(a.Keywords, b.Keywords) * recencyWeight(a.PlayedAt, b.PlayedAt)
}

func known(value, placeholder string) bool {
	return value != "" && value != placeholder
}

func jaccard(a, b []string) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	inA := make(map[string]struct{}, len(a))
	for _, k := range a {
		inA[k] = struct{}{}
		union[k] = struct{}{}
	}
	if len(union) == 0 && len(b) == 0 {
		return 0
	}

	common := 0
	counted := make(map[string]struct{}, len(b))
	for _, k := range b {
		union[k] = struct{}{}
		if _, ok := inA[k]; ok {
			if _, done := counted[k]; !done {
				common++
				counted[k] = struct{}{}
			}
		}
	}
	return float64(common) / float64(len(union))
}

func recencyWeight(a, b time.Time) float64 {
	gap := math.Abs(float64(a.Sub(b).Milliseconds()))
	return math.Max(0.1, 1.0-gap/dayMs)
}
