// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/logger"
)

var (
	configPath string // directory holding main.toml
	devMode    bool

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "tvplayer",
		Short: "tvplayer is a remote controlled video player for the living room",
		Long: `tvplayer browses a video library, plays files with mpv and remembers
where every file was left. It is driven from a browser or a remote control
bridge through its web interface.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.ReadConfig(configPath); err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			return logger.Init(cfg.Log)
		},
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./etc/", "Directory containing main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable dev mode")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
