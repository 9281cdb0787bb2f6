// Package service provides business logic for the tunecore application.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/library"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// LibraryConfig holds the scanning limits of a LibraryService.
type LibraryConfig struct {
	// ScanLimit caps the audio files one scan enumerates
	ScanLimit int

	// ProgressEvery is the number of files between two ScanProgressEvents
	ProgressEvery int
}

// DefaultLibraryConfig returns the stock limits.
func DefaultLibraryConfig() LibraryConfig {
	return LibraryConfig{
		ScanLimit:     10000,
		ProgressEvery: 10,
	}
}

// LibraryService owns the track catalog: it scans directories, resolves metadata,
// keeps play statistics and persists the catalog.
// All operations are thread-safe via sync.RWMutex.
type LibraryService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	resolver ports.MetadataResolver
	bus      ports.EventBus
	repo     ports.LibraryRepository

	index *library.Index
	cfg   LibraryConfig
	now   func() time.Time

	// State
	scanning   bool
	cancelScan context.CancelFunc

	// Concurrency control
	mu sync.RWMutex
}

// NewLibraryService creates a new library service.
// repo may be nil when the catalog is only persisted to files.
func NewLibraryService(
	logger *slog.Logger,
	resolver ports.MetadataResolver,
	bus ports.EventBus,
	repo ports.LibraryRepository,
	cfg LibraryConfig,
) *LibraryService {
	def := DefaultLibraryConfig()
	if cfg.ScanLimit < 1 {
		cfg.ScanLimit = def.ScanLimit
	}
	if cfg.ProgressEvery < 1 {
		cfg.ProgressEvery = def.ProgressEvery
	}

	return &LibraryService{
		logger:   logger.With(slog.String("service", "LibraryService")),
		resolver: resolver,
		bus:      bus,
		repo:     repo,
		index:    library.NewIndex(),
		cfg:      cfg,
		now:      time.Now,
	}
}

// AddTrack inserts track unless its path is already known and reports whether it did.
func (s *LibraryService) AddTrack(track domain.Track) bool {
	if !s.index.Add(track) {
		s.logger.Debug("track already in library", slog.String("path", track.Path))
		return false
	}

	added, _ := s.index.Get(track.Path)
	s.bus.Publish(domain.NewTrackAddedEvent(added))
	s.publishChanged()
	return true
}

// RemoveTrack drops the track at path and reports whether it was present.
func (s *LibraryService) RemoveTrack(path string) bool {
	if !s.index.Remove(path) {
		return false
	}

	s.logger.Debug("track removed", slog.String("path", path))
	s.bus.Publish(domain.NewTrackRemovedEvent(path))
	s.publishChanged()
	return true
}

// Clear empties the library.
func (s *LibraryService) Clear() {
	removed := s.index.Clear()

	s.logger.Info("library cleared", slog.Int("removed", removed))
	s.bus.Publish(domain.NewLibraryClearedEvent(removed))
	s.publishChanged()
}

// GetTrack returns a copy of the track at path.
func (s *LibraryService) GetTrack(path string) (domain.Track, bool) { return s.index.Get(path) }

// HasTrack reports whether path is in the library.
func (s *LibraryService) HasTrack(path string) bool { return s.index.Has(path) }

// Len returns the number of tracks.
func (s *LibraryService) Len() int { return s.index.Len() }

// AllTracks returns every track in insertion order.
func (s *LibraryService) AllTracks() []domain.Track { return s.index.All() }

// SearchTracks matches query case-insensitively against title, artist, album and genre.
func (s *LibraryService) SearchTracks(query string) []domain.Track { return s.index.Search(query) }

// TracksByArtist returns the tracks of artist in insertion order.
func (s *LibraryService) TracksByArtist(artist string) []domain.Track {
	return s.index.ByArtist(artist)
}

// TracksByAlbum returns the tracks of album in insertion order.
func (s *LibraryService) TracksByAlbum(album string) []domain.Track { return s.index.ByAlbum(album) }

// TracksByGenre returns the tracks of genre in insertion order.
func (s *LibraryService) TracksByGenre(genre string) []domain.Track { return s.index.ByGenre(genre) }

// MostPlayed returns up to n tracks by descending play count.
func (s *LibraryService) MostPlayed(n int) []domain.Track { return s.index.MostPlayed(n) }

// RecentlyPlayed returns up to n tracks by descending last played time.
func (s *LibraryService) RecentlyPlayed(n int) []domain.Track { return s.index.RecentlyPlayed(n) }

// RecentlyAdded returns the n most recently inserted tracks, most recent last.
func (s *LibraryService) RecentlyAdded(n int) []domain.Track { return s.index.RecentlyAdded(n) }

// Artists returns the sorted set of known artists.
func (s *LibraryService) Artists() []string { return s.index.Artists() }

// Albums returns the sorted set of known albums.
func (s *LibraryService) Albums() []string { return s.index.Albums() }

// Genres returns the sorted set of known genres.
func (s *LibraryService) Genres() []string { return s.index.Genres() }

// AlbumMap groups the tracks by album.
func (s *LibraryService) AlbumMap() map[string][]domain.Track { return s.index.AlbumMap() }

// Stats returns the library aggregates.
func (s *LibraryService) Stats() domain.LibraryStats { return s.index.Stats() }

// NewView creates a view over the library that refreshes on every LibraryChangedEvent.
// Call the returned function to detach it.
func (s *LibraryService) NewView(cfg library.ViewConfig) (*library.View, func()) {
	view := library.NewView(s.index, cfg, s.bus, s.logger)
	id := s.bus.Subscribe(domain.EventLibraryChanged, func(domain.Event) {
		view.Refresh()
	})
	return view, func() { s.bus.Unsubscribe(id) }
}

// MarkPlayed increments the play count of the track at path and stamps its last played time.
func (s *LibraryService) MarkPlayed(path string, at time.Time) (domain.Track, error) {
	track, ok := s.index.Update(path, func(t *domain.Track) {
		t.PlayCount++
		t.LastPlayed = at
	})
	if !ok {
		return domain.Track{}, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, path)
	}

	s.bus.Publish(domain.NewTrackPlayedEvent(track))
	s.publishChanged()
	return track, nil
}

// ReloadMetadata re-resolves the tags of the track at path, keeping its play statistics.
func (s *LibraryService) ReloadMetadata(path string) (domain.Track, error) {
	if !s.index.Has(path) {
		return domain.Track{}, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, path)
	}

	meta, err := s.resolver.Resolve(path)
	if err != nil {
		return domain.Track{}, domain.NewServiceError("LibraryService", "ReloadMetadata", "failed to resolve metadata", err)
	}

	track, ok := s.index.Update(path, func(t *domain.Track) {
		t.ApplyMetadata(*meta)
	})
	if !ok {
		return domain.Track{}, fmt.Errorf("%w: %s", domain.ErrTrackNotFound, path)
	}

	s.publishChanged()
	return track, nil
}

// OpenFile validates a single file, adds it to the library if needed and marks it played.
// Failures publish a TrackErrorEvent.
func (s *LibraryService) OpenFile(path string) (domain.Track, error) {
	if err := validateFile(path); err != nil {
		s.logger.Warn("cannot open file", slog.String("path", path), slog.Any("error", err))
		s.bus.Publish(domain.NewTrackErrorEvent(path, err))
		return domain.Track{}, err
	}

	if !s.index.Has(path) {
		meta, err := s.resolver.Resolve(path)
		if err != nil {
			s.logger.Warn("metadata unavailable, using file name",
				slog.String("path", path),
				slog.Any("error", err))
			meta = nil
		}
		s.AddTrack(domain.NewTrack(path, meta))
	}

	return s.MarkPlayed(path, s.now())
}

func validateFile(path string) error {
	if path == "" {
		return domain.ErrInvalidFilePath
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if !domain.IsSupportedAudioFile(path) {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

// ScanDirectory walks dir recursively and adds every new audio file whose metadata
// resolves. Files that fail to resolve are logged and skipped. The walk stops after
// ScanLimit audio files. Cancelling ctx aborts the scan with domain.ErrScanCancelled;
// tracks added so far stay in the library.
func (s *LibraryService) ScanDirectory(ctx context.Context, dir string) (domain.ScanResult, error) {
	result := domain.ScanResult{Path: dir}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		err = fmt.Errorf("%w: %s", domain.ErrDirectoryNotFound, dir)
		s.logger.Warn("directory does not exist", slog.String("path", dir))
		s.bus.Publish(domain.NewScanErrorEvent(dir, err))
		return result, err
	}

	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return result, domain.NewServiceError("LibraryService", "ScanDirectory", "scan already in progress", domain.ErrScanInProgress)
	}
	s.scanning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancelScan = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}()

	start := s.now()
	s.bus.Publish(domain.NewScanStartedEvent(dir))

	files, limited, err := s.collectAudioFiles(ctx, dir)
	if err != nil {
		return result, s.scanAborted(dir, err)
	}
	result.LimitReached = limited

	total := len(files)
	for i, path := range files {
		if ctx.Err() != nil {
			s.publishChanged()
			return result, s.scanAborted(dir, ctx.Err())
		}

		result.FilesScanned++
		if s.scanFile(path) {
			result.TracksAdded++
		} else {
			result.Skipped++
		}

		if (i+1)%s.cfg.ProgressEvery == 0 || i+1 == total {
			s.bus.Publish(domain.NewScanProgressEvent(domain.ScanProgress{
				CurrentFile:  path,
				FilesScanned: i + 1,
				TotalFiles:   total,
				TracksFound:  result.TracksAdded,
			}))
		}
	}

	result.Elapsed = s.now().Sub(start)
	s.logger.Info("scan completed",
		slog.String("path", dir),
		slog.Int("files", result.FilesScanned),
		slog.Int("added", result.TracksAdded),
		slog.Int("skipped", result.Skipped),
		slog.Bool("limit_reached", result.LimitReached))

	s.bus.Publish(domain.NewScanCompletedEvent(result))
	if result.TracksAdded > 0 {
		s.publishChanged()
	}
	return result, nil
}

// scanFile resolves and adds one file, reporting whether a track was added.
func (s *LibraryService) scanFile(path string) bool {
	if s.index.Has(path) {
		return false
	}

	meta, err := s.resolver.Resolve(path)
	if err != nil {
		s.logger.Warn("skipping file",
			slog.String("path", path),
			slog.String("kind", domain.Classify(err).String()),
			slog.Any("error", err))
		return false
	}

	track := domain.NewTrack(path, meta)
	if !s.index.Add(track) {
		return false
	}
	added, _ := s.index.Get(path)
	s.bus.Publish(domain.NewTrackAddedEvent(added))
	return true
}

func (s *LibraryService) scanAborted(dir string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info("scan cancelled", slog.String("path", dir))
		s.bus.Publish(domain.NewScanCancelledEvent(err.Error()))
		return domain.ErrScanCancelled
	}
	s.bus.Publish(domain.NewScanErrorEvent(dir, err))
	return domain.NewServiceError("LibraryService", "ScanDirectory", "walk failed", err)
}

// collectAudioFiles recursively collects up to ScanLimit audio files below dir.
func (s *LibraryService) collectAudioFiles(ctx context.Context, dir string) ([]string, bool, error) {
	files := make([]string, 0)
	limited := false

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Skip files/folders we can't access
			s.logger.Debug("skipping unreadable entry", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !domain.IsSupportedAudioFile(path) {
			return nil
		}

		if len(files) >= s.cfg.ScanLimit {
			limited = true
			return fs.SkipAll
		}
		files = append(files, path)
		return nil
	})

	return files, limited, err
}

// CancelScan cancels the currently running scan operation.
func (s *LibraryService) CancelScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return domain.NewServiceError("LibraryService", "CancelScan", "no scan in progress", nil)
	}

	if s.cancelScan != nil {
		s.cancelScan()
	}

	return nil
}

// IsScanning returns true if a scan is currently in progress.
func (s *LibraryService) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// SaveToFile writes the catalog as a record stream.
func (s *LibraryService) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.NewServiceError("LibraryService", "SaveToFile", "cannot create file", err)
	}

	if err := library.WriteRecords(f, s.index.All()); err != nil {
		_ = f.Close()
		return domain.NewServiceError("LibraryService", "SaveToFile", "write failed", err)
	}
	if err := f.Close(); err != nil {
		return domain.NewServiceError("LibraryService", "SaveToFile", "close failed", err)
	}

	s.logger.Info("library saved", slog.String("path", path), slog.Int("tracks", s.index.Len()))
	return nil
}

// LoadFromFile replaces the catalog with the records in path and returns the track count.
// A file that does not parse leaves the library untouched.
func (s *LibraryService) LoadFromFile(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if err != nil {
		return 0, domain.NewServiceError("LibraryService", "LoadFromFile", "cannot open file", err)
	}
	defer f.Close()

	tracks, err := library.ReadRecords(f)
	if err != nil {
		return 0, domain.NewServiceError("LibraryService", "LoadFromFile", "invalid library file", err)
	}

	n := s.replace(tracks)
	s.logger.Info("library loaded", slog.String("path", path), slog.Int("tracks", n))
	return n, nil
}

// SaveToRepository persists the catalog through the configured repository.
func (s *LibraryService) SaveToRepository(ctx context.Context) error {
	if s.repo == nil {
		return domain.NewServiceError("LibraryService", "SaveToRepository", "no repository configured", nil)
	}
	if err := s.repo.SaveTracks(ctx, s.index.All()); err != nil {
		return domain.NewServiceError("LibraryService", "SaveToRepository", "failed to save tracks", err)
	}
	return nil
}

// LoadFromRepository replaces the catalog with the repository contents.
func (s *LibraryService) LoadFromRepository(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, domain.NewServiceError("LibraryService", "LoadFromRepository", "no repository configured", nil)
	}
	tracks, err := s.repo.LoadTracks(ctx)
	if err != nil {
		return 0, domain.NewServiceError("LibraryService", "LoadFromRepository", "failed to load tracks", err)
	}

	n := s.replace(tracks)
	s.logger.Debug("library restored", slog.Int("tracks", n))
	return n, nil
}

func (s *LibraryService) replace(tracks []domain.Track) int {
	removed := s.index.Replace(tracks)
	if removed > 0 {
		s.bus.Publish(domain.NewLibraryClearedEvent(removed))
	}
	s.publishChanged()
	return s.index.Len()
}

func (s *LibraryService) publishChanged() {
	s.bus.Publish(domain.NewLibraryChangedEvent(s.index.Stats()))
}

// Shutdown cleans up resources.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancel any running scan
	if s.scanning && s.cancelScan != nil {
		s.cancelScan()
	}

	return nil
}
