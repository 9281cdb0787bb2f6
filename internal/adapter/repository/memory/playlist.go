package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// PlaylistRepository implements ports.PlaylistRepository with a map keyed by playlist ID.
// Stored playlists are copies, so callers may keep mutating theirs.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PlaylistRepository struct {
	mu        sync.RWMutex
	playlists map[string]domain.Playlist
}

// NewPlaylistRepository creates an empty playlist repository.
func NewPlaylistRepository() *PlaylistRepository {
	return &PlaylistRepository{
		playlists: make(map[string]domain.Playlist),
	}
}

// Save persists a playlist.
func (r *PlaylistRepository) Save(_ context.Context, playlist *domain.Playlist) error {
	if playlist == nil || playlist.ID == "" {
		return domain.NewValidationError("id", "", "playlist ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.playlists[playlist.ID] = clonePlaylist(*playlist)
	return nil
}

// Load retrieves a playlist by ID.
func (r *PlaylistRepository) Load(_ context.Context, id string) (*domain.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.playlists[id]
	if !ok {
		return nil, domain.ErrPlaylistNotFound
	}
	out := clonePlaylist(p)
	return &out, nil
}

// LoadAll retrieves all saved playlists ordered by creation time.
func (r *PlaylistRepository) LoadAll(_ context.Context) ([]*domain.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	playlists := make([]*domain.Playlist, 0, len(r.playlists))
	for _, p := range r.playlists {
		out := clonePlaylist(p)
		playlists = append(playlists, &out)
	}
	slices.SortFunc(playlists, func(a, b *domain.Playlist) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return playlists, nil
}

// Delete removes a playlist by ID.
func (r *PlaylistRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.playlists, id)
	return nil
}

// Exists checks if a playlist with the given ID exists.
func (r *PlaylistRepository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.playlists[id]
	return ok
}

func clonePlaylist(p domain.Playlist) domain.Playlist {
	p.Tracks = slices.Clone(p.Tracks)
	return p
}

// Verify interface implementation
var _ ports.PlaylistRepository = (*PlaylistRepository)(nil)
