package app

import (
	"github.com/spf13/cobra"

	"github.com/tvplayer/tvplayer/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(
		&browseStatic,
		"browse",
		false,
		"Enable static file browsing (for development purposes only)",
	)

	rootCmd.AddCommand(startCmd)
}

var (
	browseStatic bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the player and its web remote",
		RunE: func(_ *cobra.Command, _ []string) error {
			if browseStatic {
				cfg.Webserver.BrowseStatic = true
			}

			d, err := daemon.New(&cfg)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)
