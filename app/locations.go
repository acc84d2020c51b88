package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvplayer/tvplayer/internal/media"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(locationsCmd)
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Print the storage locations found on this device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, loc := range media.StorageLocations(media.StorageConfig{
			Paths:          cfg.Library.StoragePaths,
			USBMountRoot:   cfg.Library.USBMountRoot,
			RemovableRoots: cfg.Library.RemovableRoots,
		}) {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), loc); err != nil {
				return err
			}
		}

		return nil
	},
}
