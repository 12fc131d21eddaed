package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/logger"
	"github.com/dbarrero/terraria-launcher/internal/service/launcher"
	"github.com/dbarrero/terraria-launcher/internal/version"
)

var (
	// settingsPath is the path to the launcher settings YAML file.
	settingsPath string
	// credentialsPath is the path to the persisted credentials JSON file.
	credentialsPath string
	// tunnelProvider selects ngrok or playit without prompting.
	tunnelProvider string
	// logLevel sets the minimum log level.
	logLevel string

	// rootCmd represents the base command that runs the server and its tunnel.
	rootCmd = &cobra.Command{
		Use:   "terraria-launcher",
		Short: "Run a Terraria dedicated server behind a network tunnel.",
		Long: `Provisions and supervises a Terraria dedicated server together with a
network tunnel (ngrok or playit) that exposes it at a publicly routable address.

On first run the server archive is downloaded and unpacked, the worlds folder
is linked into the location Terraria reads from, and any missing credentials
are collected interactively and persisted. Once the tunnel is up its address
is announced to the configured Discord webhook, and the server console is
attached to this terminal. Ctrl+C stops the server, the tunnel, and every
other tracked process.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &launcher.Options{
				SettingsPath:    settingsPath,
				CredentialsPath: credentialsPath,
				Tunnel:          tunnelProvider,
			}

			return launcher.Run(ctx, options)
		},
	}
)

// Execute runs the terraria-launcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&settingsPath, "settings", "s", config.DefaultSettingsFilename, "path to launcher settings file")
	rootCmd.Flags().
		StringVarP(&credentialsPath, "credentials", "c", config.DefaultCredentialsFilename, "path to persisted credentials file")
	rootCmd.Flags().StringVarP(&tunnelProvider, "tunnel", "t", "", "tunnel provider (ngrok or playit); prompts if omitted")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "minimum log level (debug, info, warn, error)")
}
