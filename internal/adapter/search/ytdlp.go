// Package search runs song searches through the yt-dlp command line tool.
package search

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sethvargo/go-retry"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// BinaryName is the executable looked up on PATH when no path is configured.
const BinaryName = "yt-dlp"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var webpThumb = regexp.MustCompile(`vi_webp/([\w-]+)/`)

// Config holds the yt-dlp invocation settings.
type Config struct {
	// BinaryPath is the yt-dlp executable; empty means look it up
	BinaryPath string

	// Retries is how many times a failed process is re-run
	Retries uint64

	// RetryBackoff is the first delay between attempts, doubled each time
	RetryBackoff time.Duration
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Retries:      1,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// YtDlp implements ports.SearchProvider by running
// `yt-dlp -J --no-warnings --flat-playlist ytsearchN:<query>` and decoding its JSON.
type YtDlp struct {
	cfg    Config
	logger *slog.Logger
}

// NewYtDlp creates a search provider. The binary is resolved on every search,
// so installing yt-dlp later does not need a restart.
func NewYtDlp(cfg Config, logger *slog.Logger) *YtDlp {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &YtDlp{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ytdlp")),
	}
}

// Search returns up to maxResults hits for query.
// Every failure wraps domain.ErrSearchUnavailable inside a *domain.SearchError.
func (y *YtDlp) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchResult, error) {
	if maxResults < 1 {
		maxResults = 1
	}

	bin, err := y.binary()
	if err != nil {
		return nil, domain.NewSearchError(query, -1, "", err)
	}

	args := []string{
		"-J",
		"--no-warnings",
		"--flat-playlist",
		fmt.Sprintf("ytsearch%d:%s", maxResults, query),
	}

	backoff := retry.WithMaxRetries(y.cfg.Retries, retry.NewExponential(y.cfg.RetryBackoff))
	out, err := retry.DoValue(ctx, backoff, func(ctx context.Context) ([]byte, error) {
		out, err := y.run(ctx, bin, query, args)
		var searchErr *domain.SearchError
		if errors.As(err, &searchErr) && searchErr.ExitCode > 0 {
			y.logger.Debug("yt-dlp failed, retrying", slog.String("query", query), slog.Int("exit", searchErr.ExitCode))
			return nil, retry.RetryableError(err)
		}
		return out, err
	})
	if err != nil {
		var searchErr *domain.SearchError
		if errors.As(err, &searchErr) {
			return nil, err
		}
		return nil, domain.NewSearchError(query, -1, "", fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err))
	}

	results, err := ParseResults(out)
	if err != nil {
		return nil, domain.NewSearchError(query, 0, "", err)
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	y.logger.Debug("search finished", slog.String("query", query), slog.Int("results", len(results)))
	return results, nil
}

func (y *YtDlp) run(ctx context.Context, bin, query string, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, domain.NewSearchError(query, -1, "", fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, ctxErr))
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return nil, domain.NewSearchError(query, exitErr.ExitCode(), strings.TrimSpace(stderr.String()),
			fmt.Errorf("%w: process exited with code %d", domain.ErrSearchUnavailable, exitErr.ExitCode()))
	case err != nil:
		return nil, domain.NewSearchError(query, -1, "", fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err))
	}
	return stdout.Bytes(), nil
}

// binary resolves the executable: the configured path, PATH, then the
// directory holding the running program.
func (y *YtDlp) binary() (string, error) {
	if y.cfg.BinaryPath != "" {
		if _, err := os.Stat(y.cfg.BinaryPath); err != nil {
			return "", fmt.Errorf("%w: %s not found", domain.ErrSearchUnavailable, y.cfg.BinaryPath)
		}
		return y.cfg.BinaryPath, nil
	}

	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), BinaryName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found", domain.ErrSearchUnavailable, BinaryName)
}

type ytEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader"`
	Channel    string `json:"channel"`
	Thumbnail  string `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

type ytResponse struct {
	ytEntry
	Entries []ytEntry `json:"entries"`
}

// ParseResults decodes yt-dlp -J output. Both a playlist object with entries
// and a single video object are accepted. Entries without a title are dropped.
func ParseResults(data []byte) ([]domain.SearchResult, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty output", domain.ErrSearchUnavailable)
	}

	var resp ytResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed output: %v", domain.ErrSearchUnavailable, err)
	}

	entries := resp.Entries
	if entries == nil && resp.Title != "" {
		entries = []ytEntry{resp.ytEntry}
	}

	results := make([]domain.SearchResult, 0, len(entries))
	for _, e := range entries {
		if e.Title == "" {
			continue
		}

		uploader := cmp.Or(e.Uploader, e.Channel, domain.UnknownArtist)

		thumb := e.Thumbnail
		if thumb == "" && len(e.Thumbnails) > 0 {
			thumb = e.Thumbnails[len(e.Thumbnails)-1].URL
		}
		thumb = FixThumbnailURL(thumb)
		if thumb == "" && e.ID != "" {
			thumb = thumbnailFor(e.ID)
		}

		results = append(results, domain.SearchResult{
			Title:        e.Title,
			Uploader:     uploader,
			ThumbnailURL: thumb,
			PlayableID:   e.ID,
		})
	}
	return results, nil
}

// FixThumbnailURL rewrites webp thumbnails to the jpeg hqdefault variant.
func FixThumbnailURL(url string) string {
	if m := webpThumb.FindStringSubmatch(url); m != nil {
		return thumbnailFor(m[1])
	}
	return url
}

func thumbnailFor(id string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
}

var _ ports.SearchProvider = (*YtDlp)(nil)
