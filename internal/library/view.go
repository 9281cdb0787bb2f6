package library

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// Filter names understood by View.SetFilter.
const (
	FilterAll            = "All Tracks"
	FilterFavorites      = "Favorites"
	FilterRecentlyPlayed = "Recently Played"

	FilterArtistPrefix = "artist:"
	FilterAlbumPrefix  = "album:"
	FilterGenrePrefix  = "genre:"
)

// Sort fields understood by View.SetSort and View.SortBy.
const (
	SortTitle     = "Title"
	SortArtist    = "Artist"
	SortAlbum     = "Album"
	SortDuration  = "Duration"
	SortYear      = "Year"
	SortPlayCount = "PlayCount"
)

// Source supplies the full track collection a view projects.
type Source interface {
	All() []domain.Track
}

// ViewConfig tunes the named filters of a View.
type ViewConfig struct {
	// FavoriteThreshold is the minimum play count for "Favorites"
	FavoriteThreshold int

	// RecentWindow is how far back "Recently Played" reaches
	RecentWindow time.Duration

	// Now is the view clock; time.Now when nil
	Now func() time.Time
}

// DefaultViewConfig returns the stock filter settings.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		FavoriteThreshold: 10,
		RecentWindow:      7 * 24 * time.Hour,
		Now:               time.Now,
	}
}

// ViewState is the (search, filter, sort) triple a view is derived from.
type ViewState struct {
	Search string
	Filter string
	Sort   string
}

// View is a searched, filtered and sorted projection of a Source.
// The displayed list is always sort(filter(search(all))) for the current state and
// is replaced in one step, so readers never see a half-applied recompute.
// A view never mutates its source.
type View struct {
	source Source
	bus    ports.EventBus
	cfg    ViewConfig
	logger *slog.Logger

	state     ViewState
	sortSet   bool
	displayed []domain.Track

	mu sync.RWMutex
}

// NewView creates a view over source and computes its initial contents.
// bus may be nil when nobody listens for ViewChangedEvent.
func NewView(source Source, cfg ViewConfig, bus ports.EventBus, logger *slog.Logger) *View {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	v := &View{
		source: source,
		bus:    bus,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "library_view")),
		state:  ViewState{Filter: FilterAll},
	}
	v.Refresh()
	return v
}

// SetSearch stores query and recomputes the view.
func (v *View) SetSearch(query string) {
	v.mu.Lock()
	v.state.Search = query
	v.mu.Unlock()
	v.Refresh()
}

// SetFilter stores the filter name and recomputes the view.
// Unknown names behave like FilterAll.
func (v *View) SetFilter(name string) {
	v.mu.Lock()
	v.state.Filter = name
	v.mu.Unlock()
	v.Refresh()
}

// SetSort stores the sort field and recomputes the view.
// Unknown fields sort by title.
func (v *View) SetSort(field string) {
	v.mu.Lock()
	v.state.Sort = field
	v.sortSet = true
	v.mu.Unlock()
	v.Refresh()
}

// SortBy re-sorts the currently displayed tracks by field without re-reading the
// source, and remembers field for later recomputes.
func (v *View) SortBy(field string) {
	v.mu.Lock()
	v.state.Sort = field
	v.sortSet = true
	sorted := slices.Clone(v.displayed)
	SortTracks(sorted, field)
	v.displayed = sorted
	state, n := v.state, len(sorted)
	v.mu.Unlock()

	v.publish(state, n)
}

// Refresh recomputes the displayed tracks from the source.
func (v *View) Refresh() {
	all := v.source.All()

	v.mu.Lock()
	state, sortSet := v.state, v.sortSet
	now := v.cfg.Now()

	result := Search(all, state.Search)
	result = v.applyFilter(result, state.Filter, now)
	if sortSet {
		SortTracks(result, state.Sort)
	}
	v.displayed = result
	v.mu.Unlock()

	v.logger.Debug("view recomputed",
		slog.String("search", state.Search),
		slog.String("filter", state.Filter),
		slog.String("sort", state.Sort),
		slog.Int("displayed", len(result)))

	v.publish(state, len(result))
}

func (v *View) publish(state ViewState, displayed int) {
	if v.bus != nil {
		v.bus.Publish(domain.NewViewChangedEvent(state.Search, state.Filter, state.Sort, displayed))
	}
}

func (v *View) applyFilter(tracks []domain.Track, name string, now time.Time) []domain.Track {
	var keep func(domain.Track) bool

	switch {
	case name == "" || name == FilterAll:
		return tracks
	case name == FilterFavorites:
		keep = func(t domain.Track) bool { return t.PlayCount >= v.cfg.FavoriteThreshold }
	case name == FilterRecentlyPlayed:
		cutoff := now.Add(-v.cfg.RecentWindow)
		keep = func(t domain.Track) bool { return !t.LastPlayed.IsZero() && t.LastPlayed.After(cutoff) }
	case strings.HasPrefix(name, FilterArtistPrefix):
		want := strings.TrimPrefix(name, FilterArtistPrefix)
		keep = func(t domain.Track) bool { return strings.EqualFold(t.Artist, want) }
	case strings.HasPrefix(name, FilterAlbumPrefix):
		want := strings.TrimPrefix(name, FilterAlbumPrefix)
		keep = func(t domain.Track) bool { return strings.EqualFold(t.Album, want) }
	case strings.HasPrefix(name, FilterGenrePrefix):
		want := strings.TrimPrefix(name, FilterGenrePrefix)
		keep = func(t domain.Track) bool { return strings.EqualFold(t.Genre, want) }
	default:
		v.logger.Debug("unknown filter, showing all tracks", slog.String("filter", name))
		return tracks
	}

	out := make([]domain.Track, 0, len(tracks))
	for _, t := range tracks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortTracks orders tracks in place by field with an ascending title tie-break.
func SortTracks(tracks []domain.Track, field string) {
	byTitle := func(a, b domain.Track) int {
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}

	var primary func(a, b domain.Track) int
	switch field {
	case SortArtist:
		primary = func(a, b domain.Track) int { return cmp.Compare(strings.ToLower(a.Artist), strings.ToLower(b.Artist)) }
	case SortAlbum:
		primary = func(a, b domain.Track) int { return cmp.Compare(strings.ToLower(a.Album), strings.ToLower(b.Album)) }
	case SortDuration:
		primary = func(a, b domain.Track) int { return cmp.Compare(a.Duration, b.Duration) }
	case SortYear:
		primary = func(a, b domain.Track) int { return cmp.Compare(a.Year, b.Year) }
	case SortPlayCount:
		primary = func(a, b domain.Track) int { return cmp.Compare(b.PlayCount, a.PlayCount) }
	default:
		primary = byTitle
	}

	slices.SortStableFunc(tracks, func(a, b domain.Track) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return byTitle(a, b)
	})
}

// Tracks returns a copy of the displayed tracks.
func (v *View) Tracks() []domain.Track {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.displayed)
}

// Len returns the number of displayed tracks.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.displayed)
}

// State returns the current search, filter and sort.
func (v *View) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Stats returns aggregate counters over the displayed tracks.
func (v *View) Stats() domain.LibraryStats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return StatsOf(v.displayed)
}
