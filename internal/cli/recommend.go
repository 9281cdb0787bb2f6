package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunecore/internal/app"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/recommend"
)

func newRecommendCmd(opts *options) *cobra.Command {
	var (
		genre       string
		limit       int
		historySize int
	)

	cmd := &cobra.Command{
		Use:   "recommend [TITLE ARTIST]",
		Short: "Search online for songs similar to a song, or to the last one played",
		Args:  songArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enable := func(cfg *app.Config) { cfg.Recommend.Enabled = true }
			return opts.runWith(cmd, enable, func(ctx context.Context, a *app.Application) error {
				history, err := a.History().Recent(ctx, historySize)
				if err != nil {
					return fmt.Errorf("read history: %w", err)
				}

				var song domain.PlayedSong
				switch {
				case len(args) == 2:
					song = recommend.NewPlayedSong(args[0], args[1], genre, time.Now())
				case len(history) > 0:
					song = history[len(history)-1]
					history = history[:len(history)-1]
				default:
					return fmt.Errorf("nothing played yet, give a title and an artist")
				}

				cfg := a.Config().WorkerConfig()
				if limit > 0 {
					cfg.PerSong = limit
				}
				worker := recommend.NewWorker(a.Search(), cfg, a.Logger())
				defer worker.Stop()

				fmt.Fprintf(cmd.ErrOrStderr(), "searching for songs like %s - %s\n", song.Artist, song.Title)
				recs := worker.Generate(ctx, song, history)
				if len(recs) == 0 {
					return fmt.Errorf("no recommendations found for %s - %s", song.Artist, song.Title)
				}
				return writeRecommendations(cmd.OutOrStdout(), recs)
			})
		},
	}

	cmd.Flags().StringVar(&genre, "genre", "", "genre of the song, guessed from the artist when empty")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of recommendations")
	cmd.Flags().IntVar(&historySize, "history", 50, "recent plays considered for similar songs")
	return cmd
}

// songArgs accepts a title with its artist, or nothing.
func songArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return fmt.Errorf("give both a title and an artist, or neither")
	}
	return nil
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit    int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the listening history the recommendations learn from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runWith(cmd, withoutRecommendations, func(ctx context.Context, a *app.Application) error {
				if clearAll {
					if err := a.History().Clear(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
					return nil
				}

				songs, err := a.History().Recent(ctx, limit)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PLAYED\tTITLE\tARTIST\tGENRE")
				for i := len(songs) - 1; i >= 0; i-- {
					s := songs[i]
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", humanize.Time(s.PlayedAt), s.Title, s.Artist, s.Genre)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "forget the whole history")
	return cmd
}

func writeRecommendations(w io.Writer, recs []domain.Recommendation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tARTIST\tSCORE\tBECAUSE OF\tQUERY")
	for i, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\n", i+1, r.Title, r.Artist, r.Score, r.SourceTitle, r.PlaybackQuery)
	}
	return tw.Flush()
}
