package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunecore/internal/app"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

func newPlaylistCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlist",
		Aliases: []string{"pl"},
		Short:   "Manage playlists",
	}

	cmd.AddCommand(
		newPlaylistCreateCmd(opts),
		newPlaylistListCmd(opts),
		newPlaylistShowCmd(opts),
		newPlaylistAddCmd(opts),
		newPlaylistRemoveCmd(opts),
		newPlaylistMoveCmd(opts),
		newPlaylistRenameCmd(opts),
		newPlaylistDeleteCmd(opts),
		newPlaylistSortCmd(opts),
		newPlaylistMergeCmd(opts),
		newPlaylistExportCmd(opts),
		newPlaylistImportCmd(opts),
	)
	return cmd
}

// playlistAction runs fn against the application with recommendations off.
func playlistAction(opts *options, cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	return opts.runWith(cmd, withoutRecommendations, fn)
}

// findPlaylist accepts either a playlist ID or a name.
func findPlaylist(a *app.Application, ref string) (domain.Playlist, error) {
	p, err := a.Playlists().Get(ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrPlaylistNotFound) {
		return p, err
	}
	return a.Playlists().FindByName(ref)
}

func newPlaylistCreateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME [FILE...]",
		Short: "Create a playlist, optionally with library tracks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := a.Playlists().Create(ctx, args[0])
				if err != nil {
					return err
				}
				if len(args) > 1 {
					paths, err := absPaths(args[1:])
					if err != nil {
						return err
					}
					if err := a.Playlists().AddPaths(ctx, p.ID, paths...); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %q (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}
}

func newPlaylistListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List playlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTRACKS\tUPDATED")
				for _, p := range a.Playlists().List() {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Name, len(p.Tracks), humanize.Time(p.UpdatedAt))
				}
				return tw.Flush()
			})
		},
	}
}

func newPlaylistShowCmd(opts *options) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "show PLAYLIST",
		Short: "Show the tracks of a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				tracks := p.Tracks
				if query != "" {
					if tracks, err = a.Playlists().Search(p.ID, query); err != nil {
						return err
					}
				}
				return writePlaylistTracks(cmd.OutOrStdout(), tracks)
			})
		},
	}

	cmd.Flags().StringVar(&query, "search", "", "only tracks matching this text")
	return cmd
}

func newPlaylistAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add PLAYLIST FILE...",
		Short: "Append library tracks to a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				paths, err := absPaths(args[1:])
				if err != nil {
					return err
				}
				if err := a.Playlists().AddPaths(ctx, p.ID, paths...); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d tracks to %q\n", len(paths), p.Name)
				return nil
			})
		},
	}
}

func newPlaylistRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PLAYLIST POSITION",
		Short: "Remove the track at a 1-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				return a.Playlists().RemoveTrack(ctx, p.ID, pos)
			})
		},
	}
}

func newPlaylistMoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "move PLAYLIST FROM TO",
		Short: "Move a track between 1-based positions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			to, err := parsePosition(args[2])
			if err != nil {
				return err
			}
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				return a.Playlists().MoveTrack(ctx, p.ID, from, to)
			})
		},
	}
}

func newPlaylistRenameCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename PLAYLIST NAME",
		Short: "Rename a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				return a.Playlists().Rename(ctx, p.ID, args[1])
			})
		},
	}
}

func newPlaylistDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete PLAYLIST",
		Short: "Delete a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				if err := a.Playlists().Delete(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", p.Name)
				return nil
			})
		},
	}
}

func newPlaylistSortCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sort PLAYLIST FIELD",
		Short: "Sort a playlist by Title, Artist, Album, Duration, Year or PlayCount",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				return a.Playlists().Sort(ctx, p.ID, args[1])
			})
		},
	}
}

func newPlaylistMergeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "merge NAME PLAYLIST...",
		Short: "Create a playlist holding the tracks of others, without duplicates",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				ids := make([]string, 0, len(args)-1)
				for _, ref := range args[1:] {
					p, err := findPlaylist(a, ref)
					if err != nil {
						return err
					}
					ids = append(ids, p.ID)
				}
				merged, err := a.Playlists().Merge(ctx, args[0], ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %q with %d tracks\n", merged.Name, len(merged.Tracks))
				return nil
			})
		},
	}
}

func newPlaylistExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export PLAYLIST [FILE.m3u]",
		Short: "Write a playlist as extended M3U, to stdout when no file is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				p, err := findPlaylist(a, args[0])
				if err != nil {
					return err
				}
				if len(args) == 1 || args[1] == "-" {
					return a.Playlists().ExportM3U(p.ID, cmd.OutOrStdout())
				}

				f, err := os.Create(args[1])
				if err != nil {
					return err
				}
				if err := a.Playlists().ExportM3U(p.ID, f); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func newPlaylistImportCmd(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import FILE.m3u",
		Short: "Create a playlist from an M3U file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return playlistAction(opts, cmd, func(ctx context.Context, a *app.Application) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				if name == "" {
					base := filepath.Base(args[0])
					name = base[:len(base)-len(filepath.Ext(base))]
				}
				p, err := a.Playlists().ImportM3U(ctx, name, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %q with %d tracks\n", p.Name, len(p.Tracks))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "playlist name (defaults to the file name)")
	return cmd
}

func writePlaylistTracks(w io.Writer, tracks []domain.Track) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tARTIST\tALBUM\tDURATION")
	for i, t := range tracks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, t.Title, t.Artist, t.Album, t.FormatDuration())
	}
	return tw.Flush()
}

// parsePosition turns a 1-based position into an index.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, domain.NewValidationError("position", s, "must be a positive number")
	}
	return n - 1, nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		out[i] = abs
	}
	return out, nil
}
