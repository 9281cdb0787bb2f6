package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/tejashwikalptaru/tunecore/internal/adapter/search"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/logger"
	"github.com/tejashwikalptaru/tunecore/internal/recommend"
	"github.com/tejashwikalptaru/tunecore/internal/service"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	// AppName is the display name
	AppName string `toml:"app_name" yaml:"app_name"`

	// DataDir holds the database files; relative storage paths resolve against it
	DataDir string `toml:"data_dir" yaml:"data_dir"`

	// LogLevel is DEBUG, INFO, WARN or ERROR
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// LogFormat is "text" or "json"
	LogFormat string `toml:"log_format" yaml:"log_format"`

	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Library   LibraryConfig   `toml:"library" yaml:"library"`
	Recommend RecommendConfig `toml:"recommend" yaml:"recommend"`
	Search    SearchConfig    `toml:"search" yaml:"search"`
	Artwork   ArtworkConfig   `toml:"artwork" yaml:"artwork"`
}

// StorageConfig selects where the catalog, playlists and history live.
type StorageConfig struct {
	// Backend is "sqlite" or "memory"
	Backend string `toml:"backend" yaml:"backend"`

	// Database is the SQLite file for tracks and playlists
	Database string `toml:"database" yaml:"database"`

	// History is the bbolt file for the listening history
	History string `toml:"history" yaml:"history"`

	// HistoryEntries caps the persisted listening history
	HistoryEntries int `toml:"history_entries" yaml:"history_entries"`
}

// LibraryConfig tunes scanning and the library views.
type LibraryConfig struct {
	ScanLimit         int           `toml:"scan_limit" yaml:"scan_limit"`
	ProgressEvery     int           `toml:"progress_every" yaml:"progress_every"`
	FavoriteThreshold int           `toml:"favorite_threshold" yaml:"favorite_threshold"`
	RecentWindow      time.Duration `toml:"recent_window" yaml:"recent_window"`
	QueueCapacity     int           `toml:"queue_capacity" yaml:"queue_capacity"`
}

// RecommendConfig tunes the recommendation pipeline.
type RecommendConfig struct {
	Enabled         bool          `toml:"enabled" yaml:"enabled"`
	Delay           time.Duration `toml:"delay" yaml:"delay"`
	MaxEntries      int           `toml:"max_entries" yaml:"max_entries"`
	PerSong         int           `toml:"per_song" yaml:"per_song"`
	HistorySize     int           `toml:"history_size" yaml:"history_size"`
	ResultsPerQuery int           `toml:"results_per_query" yaml:"results_per_query"`
	QueryTimeout    time.Duration `toml:"query_timeout" yaml:"query_timeout"`
	QueryInterval   time.Duration `toml:"query_interval" yaml:"query_interval"`
}

// SearchConfig locates the external search binary.
type SearchConfig struct {
	BinaryPath   string        `toml:"binary_path" yaml:"binary_path"`
	Retries      uint64        `toml:"retries" yaml:"retries"`
	RetryBackoff time.Duration `toml:"retry_backoff" yaml:"retry_backoff"`
}

// ArtworkConfig tunes the album art cache.
type ArtworkConfig struct {
	CacheSize int `toml:"cache_size" yaml:"cache_size"`
	Size      int `toml:"size" yaml:"size"`
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	lib := service.DefaultLibraryConfig()
	mgr := recommend.DefaultManagerConfig()
	wrk := recommend.DefaultWorkerConfig()
	srch := search.DefaultConfig()

	return Config{
		AppName:   "TuneCore",
		DataDir:   defaultDataDir(),
		LogLevel:  loggerCfg.Level.String(),
		LogFormat: loggerCfg.Format,
		Storage: StorageConfig{
			Backend:        BackendSQLite,
			Database:       "library.db",
			History:        "history.db",
			HistoryEntries: 500,
		},
		Library: LibraryConfig{
			ScanLimit:         lib.ScanLimit,
			ProgressEvery:     lib.ProgressEvery,
			FavoriteThreshold: 10,
			RecentWindow:      7 * 24 * time.Hour,
			QueueCapacity:     service.DefaultQueueCapacity,
		},
		Recommend: RecommendConfig{
			Enabled:         true,
			Delay:           mgr.Delay,
			MaxEntries:      recommend.DefaultMaxRecommendations,
			PerSong:         wrk.PerSong,
			HistorySize:     mgr.HistorySize,
			ResultsPerQuery: wrk.ResultsPerQuery,
			QueryTimeout:    wrk.QueryTimeout,
			QueryInterval:   wrk.QueryInterval,
		},
		Search: SearchConfig{
			BinaryPath:   srch.BinaryPath,
			Retries:      srch.Retries,
			RetryBackoff: srch.RetryBackoff,
		},
		Artwork: ArtworkConfig{
			CacheSize: service.DefaultArtworkCacheSize,
			Size:      service.DefaultArtworkSize,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tunecore")
	}
	return ".tunecore"
}

// LoadConfig reads path over the defaults, then applies TUNECORE_* environment overrides.
// The format follows the extension: .toml, or .yaml/.yml. An empty path only applies
// the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		default:
			return cfg, domain.NewValidationError("config", path, "unsupported config format "+ext)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, domain.NewValidationError(key, v, "must be an integer"))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, domain.NewValidationError(key, v, "must be a duration"))
				return
			}
			*dst = d
		}
	}

	setString("TUNECORE_DATA_DIR", &c.DataDir)
	setString("TUNECORE_LOG_LEVEL", &c.LogLevel)
	setString("TUNECORE_LOG_FORMAT", &c.LogFormat)
	setString("TUNECORE_STORAGE", &c.Storage.Backend)
	setString("TUNECORE_YTDLP", &c.Search.BinaryPath)
	setInt("TUNECORE_SCAN_LIMIT", &c.Library.ScanLimit)
	setInt("TUNECORE_MAX_RECOMMENDATIONS", &c.Recommend.MaxEntries)
	setDuration("TUNECORE_RECOMMEND_DELAY", &c.Recommend.Delay)

	if v := os.Getenv("TUNECORE_RECOMMEND"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, domain.NewValidationError("TUNECORE_RECOMMEND", v, "must be a boolean"))
		} else {
			c.Recommend.Enabled = enabled
		}
	}

	return multierr.Combine(errs...)
}

// Validate checks the settings that have no usable fallback.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return domain.NewValidationError("storage.backend", c.Storage.Backend, "must be sqlite or memory")
	}
	if c.Storage.Backend == BackendSQLite && c.DataDir == "" {
		return domain.NewValidationError("data_dir", c.DataDir, "required for sqlite storage")
	}
	if c.Library.ScanLimit < 1 {
		return domain.NewValidationError("library.scan_limit", c.Library.ScanLimit, "must be at least 1")
	}
	if c.Recommend.MaxEntries < 1 {
		return domain.NewValidationError("recommend.max_entries", c.Recommend.MaxEntries, "must be at least 1")
	}
	return nil
}

// WorkerConfig derives the recommendation worker limits.
func (c Config) WorkerConfig() recommend.WorkerConfig {
	cfg := recommend.DefaultWorkerConfig()
	cfg.ResultsPerQuery = c.Recommend.ResultsPerQuery
	cfg.PerSong = c.Recommend.PerSong
	cfg.QueryTimeout = c.Recommend.QueryTimeout
	cfg.QueryInterval = c.Recommend.QueryInterval
	return cfg
}

// Logger builds the application logger from the log settings.
func (c Config) Logger() *slog.Logger {
	return logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(c.LogLevel, slog.LevelInfo),
		Format: c.LogFormat,
	})
}

// resolve makes a storage path absolute against DataDir.
func (c Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}
