package service

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/library"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
	"github.com/tejashwikalptaru/tunecore/internal/queue"
)

// DefaultQueueCapacity is the size of the play-next queue.
const DefaultQueueCapacity = 100

// TrackLookup finds library tracks by path.
type TrackLookup interface {
	GetTrack(path string) (domain.Track, bool)
}

// PlaylistService manages named playlists and the play-next queue.
// Playlists are persisted through the repository after every change.
// All operations are thread-safe via sync.RWMutex.
type PlaylistService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.PlaylistRepository
	tracks     TrackLookup
	bus        ports.EventBus

	// State
	playlists map[string]*domain.Playlist
	queue     *queue.Bounded[domain.Track]
	now       func() time.Time

	// Concurrency control
	mu sync.RWMutex
}

// NewPlaylistService creates a new playlist service.
func NewPlaylistService(
	logger *slog.Logger,
	repository ports.PlaylistRepository,
	tracks TrackLookup,
	bus ports.EventBus,
	queueCapacity int,
) (*PlaylistService, error) {
	if queueCapacity == 0 {
		queueCapacity = DefaultQueueCapacity
	}
	q, err := queue.NewBounded[domain.Track](queueCapacity)
	if err != nil {
		return nil, err
	}

	return &PlaylistService{
		logger:     logger.With(slog.String("service", "PlaylistService")),
		repository: repository,
		tracks:     tracks,
		bus:        bus,
		playlists:  make(map[string]*domain.Playlist),
		queue:      q,
		now:        time.Now,
	}, nil
}

// Load replaces the in-memory playlists with the repository contents.
func (s *PlaylistService) Load(ctx context.Context) (int, error) {
	stored, err := s.repository.LoadAll(ctx)
	if err != nil {
		return 0, domain.NewServiceError("PlaylistService", "Load", "failed to load playlists", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlists = make(map[string]*domain.Playlist, len(stored))
	for _, p := range stored {
		s.playlists[p.ID] = p
	}

	s.logger.Debug("playlists loaded", slog.Int("count", len(stored)))
	return len(stored), nil
}

// Create adds an empty playlist named name.
func (s *PlaylistService) Create(ctx context.Context, name string) (domain.Playlist, error) {
	return s.create(ctx, "Create", name, nil)
}

func (s *PlaylistService) create(ctx context.Context, op, name string, tracks []domain.Track) (domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Playlist{}, domain.NewValidationError("name", name, "playlist name is required")
	}

	now := s.now()
	p := &domain.Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		Tracks:    slices.Clone(tracks),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, op, p); err != nil {
		return domain.Playlist{}, err
	}
	s.playlists[p.ID] = p

	s.logger.Info("playlist created", slog.String("id", p.ID), slog.String("name", name), slog.Int("tracks", len(p.Tracks)))
	return clonePlaylist(p), nil
}

// Delete removes the playlist with id.
func (s *PlaylistService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrPlaylistNotFound, id)
	}
	if err := s.repository.Delete(ctx, id); err != nil {
		return domain.NewServiceError("PlaylistService", "Delete", "failed to delete playlist", err)
	}
	delete(s.playlists, id)

	s.logger.Info("playlist deleted", slog.String("id", id))
	return nil
}

// Get returns a copy of the playlist with id.
func (s *PlaylistService) Get(id string) (domain.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.playlists[id]
	if !ok {
		return domain.Playlist{}, fmt.Errorf("%w: %s", domain.ErrPlaylistNotFound, id)
	}
	return clonePlaylist(p), nil
}

// FindByName returns the first playlist, by creation time, named name (case-insensitive).
func (s *PlaylistService) FindByName(name string) (domain.Playlist, error) {
	for _, p := range s.List() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return domain.Playlist{}, fmt.Errorf("%w: %s", domain.ErrPlaylistNotFound, name)
}

// List returns every playlist ordered by creation time.
func (s *PlaylistService) List() []domain.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		out = append(out, clonePlaylist(p))
	}
	slices.SortFunc(out, func(a, b domain.Playlist) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Rename changes the name of a playlist.
func (s *PlaylistService) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("name", name, "playlist name is required")
	}
	return s.modify(ctx, "Rename", id, func(p *domain.Playlist) error {
		p.Name = name
		return nil
	})
}

// AddTracks appends tracks to a playlist.
func (s *PlaylistService) AddTracks(ctx context.Context, id string, tracks ...domain.Track) error {
	return s.modify(ctx, "AddTracks", id, func(p *domain.Playlist) error {
		p.Tracks = append(p.Tracks, tracks...)
		return nil
	})
}

// AddPaths appends the library tracks at paths to a playlist.
// Unknown paths fail with domain.ErrTrackNotFound and nothing is added.
func (s *PlaylistService) AddPaths(ctx context.Context, id string, paths ...string) error {
	tracks := make([]domain.Track, 0, len(paths))
	for _, path := range paths {
		t, ok := s.tracks.GetTrack(path)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrTrackNotFound, path)
		}
		tracks = append(tracks, t)
	}
	return s.AddTracks(ctx, id, tracks...)
}

// RemoveTrack removes the track at index from a playlist.
func (s *PlaylistService) RemoveTrack(ctx context.Context, id string, index int) error {
	return s.modify(ctx, "RemoveTrack", id, func(p *domain.Playlist) error {
		if index < 0 || index >= len(p.Tracks) {
			return fmt.Errorf("%w: %d", domain.ErrInvalidIndex, index)
		}
		p.Tracks = slices.Delete(p.Tracks, index, index+1)
		return nil
	})
}

// MoveTrack moves a track from one index to another.
func (s *PlaylistService) MoveTrack(ctx context.Context, id string, fromIndex, toIndex int) error {
	return s.modify(ctx, "MoveTrack", id, func(p *domain.Playlist) error {
		n := len(p.Tracks)
		if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
			return fmt.Errorf("%w: %d -> %d", domain.ErrInvalidIndex, fromIndex, toIndex)
		}
		if fromIndex == toIndex {
			return nil
		}

		track := p.Tracks[fromIndex]
		p.Tracks = slices.Delete(p.Tracks, fromIndex, fromIndex+1)
		p.Tracks = slices.Insert(p.Tracks, toIndex, track)
		return nil
	})
}

// Sort orders a playlist by one of the library sort fields.
func (s *PlaylistService) Sort(ctx context.Context, id, field string) error {
	return s.modify(ctx, "Sort", id, func(p *domain.Playlist) error {
		library.SortTracks(p.Tracks, field)
		return nil
	})
}

// Merge creates a new playlist named name holding the tracks of ids, in order.
func (s *PlaylistService) Merge(ctx context.Context, name string, ids ...string) (domain.Playlist, error) {
	var tracks []domain.Track
	for _, id := range ids {
		p, err := s.Get(id)
		if err != nil {
			return domain.Playlist{}, err
		}
		tracks = append(tracks, p.Tracks...)
	}
	return s.create(ctx, "Merge", name, tracks)
}

// Search matches query case-insensitively against the tracks of a playlist.
func (s *PlaylistService) Search(id, query string) ([]domain.Track, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return library.Search(p.Tracks, query), nil
}

// ExportM3U writes a playlist as extended M3U.
func (s *PlaylistService) ExportM3U(id string, w io.Writer) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := library.WriteM3U(w, p.Tracks); err != nil {
		return domain.NewServiceError("PlaylistService", "ExportM3U", "write failed", err)
	}
	return nil
}

// ImportM3U creates a playlist named name from an M3U stream.
// Entries already in the library take their library metadata.
func (s *PlaylistService) ImportM3U(ctx context.Context, name string, r io.Reader) (domain.Playlist, error) {
	entries, err := library.ReadM3U(r)
	if err != nil {
		return domain.Playlist{}, domain.NewServiceError("PlaylistService", "ImportM3U", "invalid playlist", err)
	}

	for i, entry := range entries {
		if t, ok := s.tracks.GetTrack(entry.Path); ok {
			entries[i] = t
		}
	}
	return s.create(ctx, "ImportM3U", name, entries)
}

// modify applies fn to a copy of the playlist and commits it only if fn and the save succeed.
func (s *PlaylistService) modify(ctx context.Context, op, id string, fn func(*domain.Playlist) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.playlists[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrPlaylistNotFound, id)
	}

	next := clonePlaylist(current)
	if err := fn(&next); err != nil {
		return err
	}
	next.UpdatedAt = s.now()

	if err := s.persist(ctx, op, &next); err != nil {
		return err
	}
	s.playlists[id] = &next
	return nil
}

// persist saves p and announces it. Callers hold s.mu.
func (s *PlaylistService) persist(ctx context.Context, op string, p *domain.Playlist) error {
	if err := s.repository.Save(ctx, p); err != nil {
		return domain.NewServiceError("PlaylistService", op, "failed to save playlist", err)
	}
	s.bus.Publish(domain.NewPlaylistUpdatedEvent(clonePlaylist(p)))
	return nil
}

func clonePlaylist(p *domain.Playlist) domain.Playlist {
	out := *p
	out.Tracks = slices.Clone(p.Tracks)
	if out.Tracks == nil {
		out.Tracks = make([]domain.Track, 0)
	}
	return out
}

// Enqueue appends the library track at path to the play-next queue.
// A full queue drops its oldest entry.
func (s *PlaylistService) Enqueue(path string) error {
	t, ok := s.tracks.GetTrack(path)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTrackNotFound, path)
	}
	s.EnqueueTrack(t)
	return nil
}

// EnqueueTrack appends track to the play-next queue.
func (s *PlaylistService) EnqueueTrack(track domain.Track) {
	if s.queue.Push(track) {
		s.logger.Debug("queue full, oldest entry dropped")
	}
	s.bus.Publish(domain.NewQueueChangedEvent(s.queue.Slice()))
}

// Next pops the oldest queued track. An empty queue yields domain.ErrQueueEmpty.
func (s *PlaylistService) Next() (domain.Track, error) {
	t, err := s.queue.Pop()
	if err != nil {
		return domain.Track{}, err
	}
	s.bus.Publish(domain.NewQueueChangedEvent(s.queue.Slice()))
	return t, nil
}

// PeekNext returns the oldest queued track without removing it.
func (s *PlaylistService) PeekNext() (domain.Track, error) { return s.queue.Peek() }

// Dequeue removes the queued track at index.
func (s *PlaylistService) Dequeue(index int) (domain.Track, error) {
	t, err := s.queue.RemoveAt(index)
	if err != nil {
		return domain.Track{}, err
	}
	s.bus.Publish(domain.NewQueueChangedEvent(s.queue.Slice()))
	return t, nil
}

// ClearQueue empties the play-next queue.
func (s *PlaylistService) ClearQueue() {
	s.queue.Clear()
	s.bus.Publish(domain.NewQueueChangedEvent(s.queue.Slice()))
}

// QueueLen returns the number of queued tracks.
func (s *PlaylistService) QueueLen() int { return s.queue.Len() }

// Queue returns the queued tracks, oldest first.
func (s *PlaylistService) Queue() []domain.Track { return s.queue.Slice() }
