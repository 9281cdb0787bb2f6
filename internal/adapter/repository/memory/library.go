package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// LibraryRepository implements ports.LibraryRepository with a slice snapshot.
//
// Thread-safe: All operations protected by sync.RWMutex.
type LibraryRepository struct {
	mu     sync.RWMutex
	tracks []domain.Track
}

// NewLibraryRepository creates an empty library repository.
func NewLibraryRepository() *LibraryRepository {
	return &LibraryRepository{}
}

// SaveTracks replaces the stored catalog with tracks.
func (r *LibraryRepository) SaveTracks(_ context.Context, tracks []domain.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracks = slices.Clone(tracks)
	return nil
}

// LoadTracks returns the stored catalog in insertion order.
func (r *LibraryRepository) LoadTracks(_ context.Context) ([]domain.Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Track, len(r.tracks))
	copy(out, r.tracks)
	return out, nil
}

// DeleteTrack removes a single track by path.
func (r *LibraryRepository) DeleteTrack(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracks = slices.DeleteFunc(r.tracks, func(t domain.Track) bool { return t.Path == path })
	return nil
}

var _ ports.LibraryRepository = (*LibraryRepository)(nil)
