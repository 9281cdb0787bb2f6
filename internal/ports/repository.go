// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// LibraryRepository persists the full track catalog between sessions.
//
// Thread-safety: Implementations must be thread-safe.
type LibraryRepository interface {
	// SaveTracks replaces the stored catalog with tracks, preserving their order.
	SaveTracks(ctx context.Context, tracks []domain.Track) error

	// LoadTracks returns the stored catalog in insertion order.
	// An empty store yields an empty slice, not an error.
	LoadTracks(ctx context.Context) ([]domain.Track, error)

	// DeleteTrack removes a single track by path.
	// Deleting an unknown path is a no-op.
	DeleteTrack(ctx context.Context, path string) error
}

// PlaylistRepository handles the persistence of named playlists.
//
// Thread-safety: Implementations must be thread-safe.
type PlaylistRepository interface {
	// Save persists a playlist.
	// If a playlist with the same ID exists, it is replaced.
	Save(ctx context.Context, playlist *domain.Playlist) error

	// Load retrieves a playlist by ID.
	// If the playlist doesn't exist, returns domain.ErrPlaylistNotFound.
	Load(ctx context.Context, id string) (*domain.Playlist, error)

	// LoadAll retrieves all saved playlists ordered by creation time.
	LoadAll(ctx context.Context) ([]*domain.Playlist, error)

	// Delete removes a playlist by ID.
	// If the playlist doesn't exist, this is a no-op (no error).
	Delete(ctx context.Context, id string) error
}

// HistoryRepository persists the listening history the recommender learns from.
//
// Thread-safety: Implementations must be thread-safe.
type HistoryRepository interface {
	// Append records a played song at the end of the history.
	Append(ctx context.Context, song domain.PlayedSong) error

	// Recent returns up to limit of the latest entries, oldest first.
	Recent(ctx context.Context, limit int) ([]domain.PlayedSong, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}
