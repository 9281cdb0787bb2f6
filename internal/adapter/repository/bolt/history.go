// Package bolt persists the listening history in a bbolt key/value file.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

const repoType = "bolt"

// DefaultMaxEntries caps the stored history when no limit is configured.
const DefaultMaxEntries = 500

var (
	historyBucket = []byte("history")
	json          = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Config drives HistoryRepository construction.
type Config struct {
	Path string

	// MaxEntries caps the stored plays; the oldest are dropped first
	MaxEntries int
}

// HistoryRepository implements ports.HistoryRepository.
// Entries are keyed by a big-endian sequence number so cursor order is play order.
type HistoryRepository struct {
	db     *bolt.DB
	max    int
	logger *slog.Logger
}

// NewHistoryRepository opens (or creates) the history file at cfg.Path.
func NewHistoryRepository(cfg Config, logger *slog.Logger) (*HistoryRepository, error) {
	if cfg.Path == "" {
		return nil, domain.NewValidationError("path", cfg.Path, "history path is required")
	}
	if cfg.MaxEntries < 1 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, domain.NewRepositoryError("Open", repoType, "open history file", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(historyBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, domain.NewRepositoryError("Open", repoType, "create bucket", err)
	}

	return &HistoryRepository{
		db:     db,
		max:    cfg.MaxEntries,
		logger: logger.With(slog.String("component", "bolt_history")),
	}, nil
}

// Append records song after every stored entry and trims the oldest past the cap.
func (r *HistoryRepository) Append(_ context.Context, song domain.PlayedSong) error {
	data, err := json.Marshal(song)
	if err != nil {
		return domain.NewRepositoryError("Append", repoType, "encode song", err)
	}

	err = r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(key(seq), data); err != nil {
			return err
		}

		if seq <= uint64(r.max) {
			return nil
		}
		// sequences are contiguous, so everything at or below cutoff is past the cap
		cutoff := seq - uint64(r.max)
		c := b.Cursor()
		for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= cutoff; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.NewRepositoryError("Append", repoType, "write entry", err)
	}
	return nil
}

// Recent returns up to limit of the latest entries, oldest first.
func (r *HistoryRepository) Recent(_ context.Context, limit int) ([]domain.PlayedSong, error) {
	songs := []domain.PlayedSong{}
	if limit <= 0 {
		return songs, nil
	}

	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(historyBucket).Cursor()
		for k, v := c.Last(); k != nil && len(songs) < limit; k, v = c.Prev() {
			var song domain.PlayedSong
			if err := json.Unmarshal(v, &song); err != nil {
				r.logger.Warn("skipping corrupted history entry",
					slog.Uint64("seq", binary.BigEndian.Uint64(k)),
					slog.Any("error", err))
				continue
			}
			songs = append(songs, song)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewRepositoryError("Recent", repoType, "read entries", err)
	}

	slices.Reverse(songs)
	return songs, nil
}

// Clear removes every entry.
func (r *HistoryRepository) Clear(_ context.Context) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(historyBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(historyBucket)
		return err
	})
	if err != nil {
		return domain.NewRepositoryError("Clear", repoType, "reset bucket", err)
	}
	return nil
}

// Close releases the file lock.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

func key(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)
