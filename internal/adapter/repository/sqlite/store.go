// Package sqlite persists the library catalog and playlists in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tejashwikalptaru/tunecore/internal/adapter/repository/sqlite/migrations"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

const repoType = "sqlite"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Config drives Store construction.
type Config struct {
	Path string
}

// Store implements ports.LibraryRepository and ports.PlaylistRepository.
// A single connection serializes all access, which keeps it safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the database at cfg.Path and applies pending migrations.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, domain.NewValidationError("path", cfg.Path, "database path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, domain.NewRepositoryError("Open", repoType, "open sqlite DB", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, domain.NewRepositoryError("Open", repoType, "bootstrap schema", err)
	}

	logger = logger.With(slog.String("component", "sqlite_store"))
	logger.Debug("database ready", slog.String("path", cfg.Path))
	return &Store{db: db, logger: logger}, nil
}

// SaveTracks replaces the stored catalog with tracks.
func (s *Store) SaveTracks(ctx context.Context, tracks []domain.Track) error {
	return s.inTx(ctx, "SaveTracks", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteTracksSQL); err != nil {
			return fmt.Errorf("clear tracks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insertTrackSQL)
		if err != nil {
			return fmt.Errorf("prepare stmt: %w", err)
		}
		defer stmt.Close()

		for i, t := range tracks {
			if _, err := stmt.ExecContext(ctx,
				t.Path,
				i,
				t.Title,
				t.Artist,
				t.Album,
				t.Genre,
				t.Year,
				t.DurationMs(),
				t.PlayCount,
				nullTime(t.LastPlayed),
				formatTime(t.AddedAt),
			); err != nil {
				return fmt.Errorf("insert %s: %w", t.Path, err)
			}
		}
		return nil
	})
}

// LoadTracks returns the stored catalog in insertion order.
func (s *Store) LoadTracks(ctx context.Context) ([]domain.Track, error) {
	rows, err := s.db.QueryContext(ctx, selectTracksSQL)
	if err != nil {
		return nil, domain.NewRepositoryError("LoadTracks", repoType, "query tracks", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		var (
			t          domain.Track
			durationMs int64
			lastPlayed sql.NullString
			addedAt    string
		)
		if err := rows.Scan(&t.Path, &t.Title, &t.Artist, &t.Album, &t.Genre, &t.Year,
			&durationMs, &t.PlayCount, &lastPlayed, &addedAt); err != nil {
			return nil, domain.NewRepositoryError("LoadTracks", repoType, "scan track", err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		if lastPlayed.Valid {
			t.LastPlayed = parseTime(lastPlayed.String)
		}
		t.AddedAt = parseTime(addedAt)
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("LoadTracks", repoType, "iterate tracks", err)
	}
	return tracks, nil
}

// DeleteTrack removes a single track by path.
func (s *Store) DeleteTrack(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, deleteTrackSQL, path); err != nil {
		return domain.NewRepositoryError("DeleteTrack", repoType, "delete track", err)
	}
	return nil
}

// Save persists a playlist, replacing any playlist with the same ID.
func (s *Store) Save(ctx context.Context, playlist *domain.Playlist) error {
	if playlist == nil || playlist.ID == "" {
		return domain.NewValidationError("id", "", "playlist ID is required")
	}

	return s.inTx(ctx, "Save", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertPlaylistSQL, playlist.ID, playlist.Name,
			formatTime(playlist.CreatedAt), formatTime(playlist.UpdatedAt)); err != nil {
			return fmt.Errorf("upsert playlist: %w", err)
		}
		if _, err := tx.ExecContext(ctx, deletePlaylistTracksSQL, playlist.ID); err != nil {
			return fmt.Errorf("clear playlist tracks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, insertPlaylistTrackSQL)
		if err != nil {
			return fmt.Errorf("prepare stmt: %w", err)
		}
		defer stmt.Close()

		for i, t := range playlist.Tracks {
			if _, err := stmt.ExecContext(ctx, playlist.ID, i, t.Path, t.Title, t.Artist,
				t.Album, t.Genre, t.Year, t.DurationMs()); err != nil {
				return fmt.Errorf("insert playlist track: %w", err)
			}
		}
		return nil
	})
}

// Load retrieves a playlist by ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.Playlist, error) {
	var p domain.Playlist
	var created, updated string
	err := s.db.QueryRowContext(ctx, selectPlaylistSQL, id).Scan(&p.ID, &p.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, domain.NewRepositoryError("Load", repoType, "query playlist", err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)

	if p.Tracks, err = s.playlistTracks(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadAll retrieves all saved playlists ordered by creation time.
func (s *Store) LoadAll(ctx context.Context) ([]*domain.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, selectPlaylistIDsSQL)
	if err != nil {
		return nil, domain.NewRepositoryError("LoadAll", repoType, "query playlists", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, domain.NewRepositoryError("LoadAll", repoType, "scan playlist id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("LoadAll", repoType, "iterate playlists", err)
	}

	playlists := make([]*domain.Playlist, 0, len(ids))
	for _, id := range ids {
		p, err := s.Load(ctx, id)
		if err != nil {
			s.logger.Warn("playlist vanished while loading", slog.String("id", id), slog.Any("error", err))
			continue
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}

// Delete removes a playlist by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.inTx(ctx, "Delete", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deletePlaylistTracksSQL, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deletePlaylistSQL, id)
		return err
	})
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) playlistTracks(ctx context.Context, id string) ([]domain.Track, error) {
	rows, err := s.db.QueryContext(ctx, selectPlaylistTracksSQL, id)
	if err != nil {
		return nil, domain.NewRepositoryError("Load", repoType, "query playlist tracks", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		var t domain.Track
		var durationMs int64
		if err := rows.Scan(&t.Path, &t.Title, &t.Artist, &t.Album, &t.Genre, &t.Year, &durationMs); err != nil {
			return nil, domain.NewRepositoryError("Load", repoType, "scan playlist track", err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("Load", repoType, "iterate playlist tracks", err)
	}
	return tracks, nil
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewRepositoryError(op, repoType, "begin tx", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return domain.NewRepositoryError(op, repoType, "write failed", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.NewRepositoryError(op, repoType, "commit tx", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var (
	_ ports.LibraryRepository  = (*Store)(nil)
	_ ports.PlaylistRepository = (*Store)(nil)
)
