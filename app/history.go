package app

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tvplayer/tvplayer/internal/db"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
	"github.com/tvplayer/tvplayer/internal/media"
)

func init() { //nolint: gochecknoinits
	historyCmd.Flags().BoolVar(&clearHistory, "clear", false, "Forget every saved position")

	rootCmd.AddCommand(historyCmd)
}

var (
	clearHistory bool

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List the saved resume positions, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gdb, err := db.Open(&cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb) //nolint:errcheck

			store := playback.NewStore(gdb)
			out := cmd.OutOrStdout()

			if clearHistory {
				n, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(out, "removed %d records\n", n)

				return nil
			}

			records, err := store.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd
			_, _ = fmt.Fprintln(tw, "FILE\tPOSITION\tWATCHED\tLAST PLAYED")

			for i := range records {
				r := &records[i]
				_, _ = fmt.Fprintf(tw, "%s\t%s / %s\t%.0f%%\t%s\n",
					r.FilePath,
					media.FormatDuration(time.Duration(r.PositionMs)*time.Millisecond),
					media.FormatDuration(time.Duration(r.DurationMs)*time.Millisecond),
					r.Percent(),
					humanize.Time(r.LastPlayed),
				)
			}

			return tw.Flush()
		},
	}
)
