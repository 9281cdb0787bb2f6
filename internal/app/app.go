// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"go.uber.org/multierr"

	"github.com/tejashwikalptaru/tunecore/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunecore/internal/adapter/metadata"
	"github.com/tejashwikalptaru/tunecore/internal/adapter/repository/bolt"
	"github.com/tejashwikalptaru/tunecore/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunecore/internal/adapter/repository/sqlite"
	"github.com/tejashwikalptaru/tunecore/internal/adapter/search"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/library"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
	"github.com/tejashwikalptaru/tunecore/internal/recommend"
	"github.com/tejashwikalptaru/tunecore/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Restoring and persisting state between runs
// - Providing a clean entry point for the CLI
type Application struct {
	// Core dependencies
	cfg    Config
	logger *slog.Logger

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	resolver *metadata.TagResolver
	search   ports.SearchProvider

	// Repositories
	libraryRepo  ports.LibraryRepository
	playlistRepo ports.PlaylistRepository
	historyRepo  ports.HistoryRepository
	closers      []io.Closer

	// Services
	libraryService  *service.LibraryService
	playlistService *service.PlaylistService
	artworkService  *service.ArtworkService
	recommender     *recommend.Manager

	playedSub    domain.SubscriptionID
	shutdownOnce sync.Once
	shutdownErr  error
}

// Option customizes NewApplication.
type Option func(*Application)

// WithLogger replaces the logger built from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithSearchProvider replaces the yt-dlp search collaborator.
func WithSearchProvider(provider ports.SearchProvider) Option {
	return func(a *Application) { a.search = provider }
}

// NewApplication creates a new application with all dependencies wired and the
// previous session restored.
func NewApplication(ctx context.Context, cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}

	// Step 1: Create logger
	if app.logger == nil {
		app.logger = cfg.Logger()
	}
	app.logger.Debug("initializing application",
		slog.String("app_name", cfg.AppName),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 2: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger.With(slog.String("component", "eventbus")))

	// Step 3: Create repositories
	if err := app.openRepositories(ctx); err != nil {
		_ = app.closeRepositories()
		return nil, err
	}

	// Step 4: Create services (with dependency injection)
	if err := app.createServices(); err != nil {
		_ = app.closeRepositories()
		return nil, err
	}

	// Step 5: Load saved state
	if err := app.loadSavedState(ctx); err != nil {
		// Non-fatal - just log and continue
		app.logger.Warn("failed to load saved state", slog.Any("error", err))
	}

	return app, nil
}

func (a *Application) openRepositories(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case BackendMemory:
		a.libraryRepo = memory.NewLibraryRepository()
		a.playlistRepo = memory.NewPlaylistRepository()
		a.historyRepo = memory.NewHistoryRepository(a.cfg.Storage.HistoryEntries)
		return nil
	}

	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	store, err := sqlite.New(ctx, sqlite.Config{Path: a.cfg.resolve(a.cfg.Storage.Database)}, a.logger)
	if err != nil {
		return fmt.Errorf("open library database: %w", err)
	}
	a.closers = append(a.closers, store)
	a.libraryRepo = store
	a.playlistRepo = store

	history, err := bolt.NewHistoryRepository(bolt.Config{
		Path:       a.cfg.resolve(a.cfg.Storage.History),
		MaxEntries: a.cfg.Storage.HistoryEntries,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	a.closers = append(a.closers, history)
	a.historyRepo = history

	return nil
}

func (a *Application) createServices() error {
	a.resolver = metadata.NewTagResolver(a.logger)

	a.libraryService = service.NewLibraryService(
		a.logger,
		a.resolver,
		a.eventBus,
		a.libraryRepo,
		service.LibraryConfig{
			ScanLimit:     a.cfg.Library.ScanLimit,
			ProgressEvery: a.cfg.Library.ProgressEvery,
		},
	)

	var err error
	a.playlistService, err = service.NewPlaylistService(
		a.logger,
		a.playlistRepo,
		a.libraryService,
		a.eventBus,
		a.cfg.Library.QueueCapacity,
	)
	if err != nil {
		return fmt.Errorf("create playlist service: %w", err)
	}

	a.artworkService, err = service.NewArtworkService(a.logger, a.resolver, service.ArtworkConfig{
		CacheSize: a.cfg.Artwork.CacheSize,
		Size:      a.cfg.Artwork.Size,
	})
	if err != nil {
		return fmt.Errorf("create artwork service: %w", err)
	}

	if !a.cfg.Recommend.Enabled {
		return nil
	}

	if a.search == nil {
		a.search = search.NewYtDlp(search.Config{
			BinaryPath:   a.cfg.Search.BinaryPath,
			Retries:      a.cfg.Search.Retries,
			RetryBackoff: a.cfg.Search.RetryBackoff,
		}, a.logger)
	}

	worker := recommend.NewWorker(a.search, a.cfg.WorkerConfig(), a.logger)

	a.recommender = recommend.NewManager(
		recommend.NewCache(a.cfg.Recommend.MaxEntries, a.cfg.Recommend.PerSong),
		worker,
		a.eventBus,
		a.historyRepo,
		recommend.ManagerConfig{
			Delay:       a.cfg.Recommend.Delay,
			HistorySize: a.cfg.Recommend.HistorySize,
		},
		a.logger,
	)

	// Every play feeds the recommender
	a.playedSub = a.eventBus.Subscribe(domain.EventTrackPlayed, func(event domain.Event) {
		played, ok := event.(domain.TrackPlayedEvent)
		if !ok {
			return
		}
		a.recommender.StartTrack(played.Track)
	})

	return nil
}

// loadSavedState restores the library, playlists and listening history.
func (a *Application) loadSavedState(ctx context.Context) error {
	var errs error

	if n, err := a.libraryService.LoadFromRepository(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to load library: %w", err))
	} else {
		a.logger.Debug("library restored", slog.Int("tracks", n))
	}

	if _, err := a.playlistService.Load(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to load playlists: %w", err))
	}

	if a.recommender != nil {
		if err := a.recommender.LoadHistory(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to load history: %w", err))
		}
	}

	return errs
}

// Save persists the library catalog.
func (a *Application) Save(ctx context.Context) error {
	return a.libraryService.SaveToRepository(ctx)
}

// Shutdown saves the library and releases every resource.
// Only the first call does any work; later calls return the same result.
func (a *Application) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.logger.Debug("shutting down application")

		var errs error
		if a.playedSub != "" {
			a.eventBus.Unsubscribe(a.playedSub)
		}

		// Save the current state
		if err := a.Save(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}

		// Shutdown services (in reverse order of creation)
		if a.recommender != nil {
			errs = multierr.Append(errs, a.recommender.Close())
		}
		errs = multierr.Append(errs, a.libraryService.Shutdown())
		errs = multierr.Append(errs, a.eventBus.Close())
		errs = multierr.Append(errs, a.closeRepositories())

		a.shutdownErr = errs
		a.logger.Debug("application shutdown complete", slog.Any("error", errs))
	})
	return a.shutdownErr
}

func (a *Application) closeRepositories() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errs
}

// NewLibraryView creates a library view refreshed on every library change.
func (a *Application) NewLibraryView() (*library.View, func()) {
	cfg := library.DefaultViewConfig()
	cfg.FavoriteThreshold = a.cfg.Library.FavoriteThreshold
	cfg.RecentWindow = a.cfg.Library.RecentWindow
	return a.libraryService.NewView(cfg)
}

// Config returns the configuration the application was built with.
func (a *Application) Config() Config { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// EventBus returns the event bus.
func (a *Application) EventBus() ports.EventBus { return a.eventBus }

// Library returns the library service.
func (a *Application) Library() *service.LibraryService { return a.libraryService }

// Playlists returns the playlist service.
func (a *Application) Playlists() *service.PlaylistService { return a.playlistService }

// Artwork returns the artwork service.
func (a *Application) Artwork() *service.ArtworkService { return a.artworkService }

// Recommender returns the recommendation manager, or nil when recommendations are disabled.
func (a *Application) Recommender() *recommend.Manager { return a.recommender }

// History returns the listening history repository.
func (a *Application) History() ports.HistoryRepository { return a.historyRepo }

// Search returns the search collaborator, or nil when recommendations are disabled.
func (a *Application) Search() ports.SearchProvider { return a.search }
