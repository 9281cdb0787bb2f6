package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunecore/internal/app"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/library"
)

// withoutRecommendations keeps short-lived commands from starting the recommender.
func withoutRecommendations(cfg *app.Config) { cfg.Recommend.Enabled = false }

func newScanCmd(opts *options) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "scan DIR...",
		Short: "Add the audio files below one or more folders to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				return runScan(ctx, cmd, a, args, watch)
			})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep the library in sync with the folders until interrupted")
	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, a *app.Application, dirs []string, watch bool) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	sub := a.EventBus().Subscribe(domain.EventScanProgress, func(event domain.Event) {
		if p, ok := event.(domain.ScanProgressEvent); ok {
			fmt.Fprintf(errOut, "\rscanned %s/%s files", humanize.Comma(int64(p.Progress.FilesScanned)), humanize.Comma(int64(p.Progress.TotalFiles)))
		}
	})
	defer a.EventBus().Unsubscribe(sub)

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}

		result, err := a.Library().ScanDirectory(ctx, abs)
		if result.FilesScanned > 0 {
			fmt.Fprintln(errOut)
		}
		if err != nil {
			return fmt.Errorf("scan %s: %w", dir, err)
		}

		fmt.Fprintf(out, "%s: added %s tracks (%s files, %s skipped) in %s\n",
			abs,
			humanize.Comma(int64(result.TracksAdded)),
			humanize.Comma(int64(result.FilesScanned)),
			humanize.Comma(int64(result.Skipped)),
			result.Elapsed.Round(time.Millisecond))
		if result.LimitReached {
			fmt.Fprintf(out, "%s: stopped at the scan limit of %s files\n", abs, humanize.Comma(int64(a.Config().Library.ScanLimit)))
		}
	}

	if err := a.Save(ctx); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	abs := make([]string, len(dirs))
	for i, dir := range dirs {
		abs[i], _ = filepath.Abs(dir)
	}
	done, err := a.Library().Watch(ctx, abs...)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "watching for changes, press Ctrl+C to stop")
	<-done
	return nil
}

func newListCmd(opts *options) *cobra.Command {
	var (
		filter string
		sortBy string
		query  string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				view, detach := a.NewLibraryView()
				defer detach()

				view.SetSearch(query)
				view.SetFilter(filter)
				if sortBy != "" {
					view.SetSort(sortBy)
				}

				tracks := view.Tracks()
				if limit > 0 && len(tracks) > limit {
					tracks = tracks[:limit]
				}
				return writeTracks(cmd.OutOrStdout(), tracks)
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", library.FilterAll,
		fmt.Sprintf("%q, %q, %q or artist:/album:/genre:<name>", library.FilterAll, library.FilterFavorites, library.FilterRecentlyPlayed))
	cmd.Flags().StringVar(&sortBy, "sort", "", "Title, Artist, Album, Duration, Year or PlayCount")
	cmd.Flags().StringVar(&query, "search", "", "only tracks matching this text")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many tracks")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Find tracks by title, artist, album or genre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				return writeTracks(cmd.OutOrStdout(), a.Library().SearchTracks(args[0]))
			})
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				out := cmd.OutOrStdout()
				stats := a.Library().Stats()

				fmt.Fprintf(out, "Tracks:   %s\n", humanize.Comma(int64(stats.Tracks)))
				fmt.Fprintf(out, "Artists:  %s\n", humanize.Comma(int64(stats.Artists)))
				fmt.Fprintf(out, "Albums:   %s\n", humanize.Comma(int64(stats.Albums)))
				fmt.Fprintf(out, "Genres:   %s\n", humanize.Comma(int64(stats.Genres)))
				fmt.Fprintf(out, "Duration: %s\n", domain.FormatDuration(stats.TotalDuration))

				played := a.Library().MostPlayed(top)
				if len(played) == 0 || played[0].PlayCount == 0 {
					return nil
				}

				fmt.Fprintln(out, "\nMost played:")
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for i, t := range played {
					if t.PlayCount == 0 {
						break
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s plays\t%s\n",
						humanize.Ordinal(i+1), t.Title, t.Artist,
						humanize.Comma(int64(t.PlayCount)), lastPlayed(t))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&top, "top", 5, "number of most played tracks to show")
	return cmd
}

func newPlayCmd(opts *options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Record a play of an audio file, adding it to the library if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adjust := withoutRecommendations
			if wait {
				adjust = nil
			}
			return opts.runWith(cmd, adjust, func(ctx context.Context, a *app.Application) error {
				return runPlay(ctx, cmd, a, args[0], wait)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "recommend", false, "wait for recommendations based on this song and print them")
	return cmd
}

func runPlay(ctx context.Context, cmd *cobra.Command, a *app.Application, path string, wait bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	if wait {
		sub := a.EventBus().Subscribe(domain.EventRecommendationsChanged, func(domain.Event) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer a.EventBus().Unsubscribe(sub)
	}

	track, err := a.Library().OpenFile(abs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s - %s [%s] played for the %s time\n", track.Artist, track.Title, track.FormatDuration(), humanize.Ordinal(track.PlayCount))

	if !wait || a.Recommender() == nil {
		return nil
	}

	cfg := a.Config().Recommend
	wc := a.Config().WorkerConfig()
	timeout := cfg.Delay + cfg.QueryTimeout*time.Duration(wc.MaxPhrases*(wc.SimilarSongs+1))
	fmt.Fprintf(cmd.ErrOrStderr(), "waiting up to %s for recommendations\n", timeout.Round(time.Second))

	select {
	case <-changed:
	case <-time.After(timeout):
		return fmt.Errorf("no recommendations after %s", timeout.Round(time.Second))
	case <-ctx.Done():
		return ctx.Err()
	}

	return writeRecommendations(out, a.Recommender().Recommendations())
}

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove FILE...",
		Short: "Remove tracks from the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				for _, path := range args {
					abs, err := filepath.Abs(path)
					if err != nil {
						return err
					}
					if !a.Library().RemoveTrack(abs) {
						return fmt.Errorf("%w: %s", domain.ErrTrackNotFound, abs)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", abs)
				}
				return nil
			})
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write the library to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				if err := a.Library().SaveToFile(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %s tracks to %s\n", humanize.Comma(int64(a.Library().Len())), args[0])
				return nil
			})
		},
	}
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the library with the tracks of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				n, err := a.Library().LoadFromFile(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s tracks from %s\n", humanize.Comma(int64(n)), args[0])
				return nil
			})
		},
	}
}

func newArtworkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "artwork FILE OUTPUT.png",
		Short: "Save the album cover of a track as PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				track, ok := a.Library().GetTrack(abs)
				if !ok {
					track = domain.NewTrack(abs, nil)
				}

				f, err := os.Create(args[1])
				if err != nil {
					return err
				}
				if err := a.Artwork().WritePNG(f, track); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
				return nil
			})
		},
	}
}

func writeTracks(w io.Writer, tracks []domain.Track) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tARTIST\tALBUM\tGENRE\tDURATION\tPLAYS\tLAST PLAYED")
	for _, t := range tracks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			t.Title, t.Artist, t.Album, t.Genre, t.FormatDuration(), t.PlayCount, lastPlayed(t))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s tracks\n", humanize.Comma(int64(len(tracks))))
	return err
}

func lastPlayed(t domain.Track) string {
	if t.LastPlayed.IsZero() {
		return "never"
	}
	return humanize.Time(t.LastPlayed)
}
