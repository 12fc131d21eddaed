package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/service/updater"
	"github.com/dbarrero/terraria-launcher/internal/version"
)

var (
	// settingsPath is the path to the launcher settings YAML file.
	settingsPath string

	// rootCmd represents the base command that self-updates the launcher.
	rootCmd = &cobra.Command{
		Use:   "terraria-updater [update-folder-url]",
		Short: "Update the launcher from a published release manifest.",
		Long: `Checks the update folder for a newer launcher release and applies it.

The folder URL can be provided as an argument or taken from the launcher
settings file. The manifest lists the release version, artifact name, and
checksum; the binary is only replaced when the remote version is newer and
the downloaded artifact's checksum matches.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use folder argument if provided, otherwise rely on settings.
			var updateFolder string
			if len(args) > 0 {
				updateFolder = args[0]
			}

			options := &updater.Options{
				SettingsPath: settingsPath,
				UpdateFolder: updateFolder,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the terraria-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&settingsPath, "settings", "s", config.DefaultSettingsFilename, "path to launcher settings file")
}
