// Package cli implements the tunecore command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/tejashwikalptaru/tunecore/internal/app"
)

// Execute runs the root CLI command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := newOptions()
	rootCmd := newRootCmd(opts)
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tunecore",
		Short:         "Music library manager with online recommendations",
		Version:       app.GetVersionInfo().FullString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", getEnv("TUNECORE_CONFIG", ""), "TOML or YAML config file (or TUNECORE_CONFIG)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory holding the databases (or TUNECORE_DATA_DIR)")
	flags.StringVar(&opts.storage, "storage", "", "storage backend: sqlite or memory (or TUNECORE_STORAGE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (or TUNECORE_LOG_LEVEL)")
	flags.StringVar(&opts.ytdlp, "yt-dlp", "", "path of the yt-dlp binary (or TUNECORE_YTDLP)")

	cmd.AddCommand(
		newScanCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newPlayCmd(opts),
		newRemoveCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newArtworkCmd(opts),
		newPlaylistCmd(opts),
		newRecommendCmd(opts),
		newHistoryCmd(opts),
	)

	return cmd
}

type options struct {
	configPath string
	dataDir    string
	storage    string
	logLevel   string
	ytdlp      string

	newApp func(ctx context.Context, cfg app.Config) (*app.Application, error)
}

func newOptions() *options {
	return &options{
		newApp: func(ctx context.Context, cfg app.Config) (*app.Application, error) {
			return app.NewApplication(ctx, cfg)
		},
	}
}

// config loads the config file and environment, then applies the flags that were set.
func (o *options) config() (app.Config, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.storage != "" {
		cfg.Storage.Backend = o.storage
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.ytdlp != "" {
		cfg.Search.BinaryPath = o.ytdlp
	}
	return cfg, cfg.Validate()
}

// runWith opens the application, hands it to fn and shuts it down, saving the library.
// adjust, when set, may change the config before the application is built.
func (o *options) runWith(cmd *cobra.Command, adjust func(*app.Config), fn func(ctx context.Context, a *app.Application) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := o.config()
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(&cfg)
	}

	a, err := o.newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer func() {
		err = multierr.Append(err, a.Shutdown(context.WithoutCancel(ctx)))
	}()

	return fn(ctx, a)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
