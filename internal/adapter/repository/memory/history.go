// Package memory provides in-memory repository implementations.
// Nothing survives the process; they back tests and sessions started without a data directory.
package memory

import (
	"context"
	"slices"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
	"github.com/tejashwikalptaru/tunecore/internal/queue"
)

// DefaultHistorySize caps the remembered plays.
const DefaultHistorySize = 500

// HistoryRepository implements ports.HistoryRepository on a bounded ring buffer.
// Appending to a full history overwrites the oldest play.
//
// Thread-safe: the ring buffer carries its own lock.
type HistoryRepository struct {
	plays *queue.Bounded[domain.PlayedSong]
}

// NewHistoryRepository creates a history holding at most size plays.
func NewHistoryRepository(size int) *HistoryRepository {
	if size < 1 {
		size = DefaultHistorySize
	}
	plays, _ := queue.NewBounded[domain.PlayedSong](size)
	return &HistoryRepository{plays: plays}
}

// Append records a played song.
func (r *HistoryRepository) Append(_ context.Context, song domain.PlayedSong) error {
	song.Keywords = slices.Clone(song.Keywords)
	r.plays.Push(song)
	return nil
}

// Recent returns up to limit of the latest plays, oldest first.
func (r *HistoryRepository) Recent(_ context.Context, limit int) ([]domain.PlayedSong, error) {
	if limit <= 0 {
		return []domain.PlayedSong{}, nil
	}
	all := r.plays.Slice()
	return all[max(0, len(all)-limit):], nil
}

// Clear removes all saved history data.
func (r *HistoryRepository) Clear(_ context.Context) error {
	r.plays.Clear()
	return nil
}

// Verify interface implementation
var _ ports.HistoryRepository = (*HistoryRepository)(nil)
