package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/downloader"
	"github.com/dbarrero/terraria-launcher/internal/installer"
	"github.com/dbarrero/terraria-launcher/internal/logger"
	"github.com/dbarrero/terraria-launcher/internal/notifier"
	"github.com/dbarrero/terraria-launcher/internal/supervisor"
	"github.com/dbarrero/terraria-launcher/internal/terraria"
	"github.com/dbarrero/terraria-launcher/internal/tunnel"
)

// Options controls the launcher run.
type Options struct {
	// SettingsPath specifies the path to the launcher settings YAML file.
	SettingsPath string
	// CredentialsPath specifies the path to the persisted credentials JSON file.
	CredentialsPath string
	// Tunnel selects the tunnel provider ("ngrok" or "playit");
	// empty means ask interactively.
	Tunnel string
	// Input is where interactive prompts read from; defaults to stdin.
	Input io.Reader
	// Output is where interactive prompts write to; defaults to stdout.
	Output io.Writer
}

// Tunnel provider choices accepted by the --tunnel flag and the prompt.
const (
	TunnelNgrok  = "ngrok"
	TunnelPlayit = "playit"
)

// errUnknownTunnel is returned for a --tunnel value that is neither provider.
var errUnknownTunnel = errors.New("unknown tunnel provider")

// Run performs the whole launcher flow: configuration, directory and world
// setup, server installation, tunnel bring-up, notification, and finally the
// game server itself. Every subprocess is registered with a supervisor whose
// teardown is deferred, so shutdown runs on every exit path: normal server
// exit, interrupt, or any fatal setup error after processes were started.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "terraria-launcher")

	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	settings, err := config.LoadSettings(opts.SettingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	creds, err := config.LoadCredentials(opts.CredentialsPath)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	var (
		fetcher = downloader.New()
		server  = terraria.NewServer(settings, fetcher)
		sup     = supervisor.New()
	)

	// Teardown of whatever was started, exactly once, on every exit path.
	defer sup.ShutdownAll(context.WithoutCancel(ctx))

	if err = server.SetupDirectories(); err != nil {
		return fmt.Errorf("setup directories: %w", err)
	}

	if err = server.LinkWorlds(ctx); err != nil {
		return fmt.Errorf("link worlds: %w", err)
	}

	if err = server.Install(ctx); err != nil {
		return fmt.Errorf("install server: %w", err)
	}

	sup.StartSaveMonitor(ctx, terraria.ProcessName, settings.SaveInterval)

	provider, err := selectProvider(ctx, opts, settings, creds, fetcher, sup)
	if err != nil {
		return err
	}

	session, err := provider.BringUp(ctx)
	if err != nil {
		return fmt.Errorf("bring up %s tunnel: %w", provider.Name(), err)
	}

	if session.Address != "" {
		notifier.New().Notify(ctx, creds.NotificationWebhook, session.Address)
	}

	cmd, err := server.Start(ctx)
	if err != nil {
		return fmt.Errorf("start game server: %w", err)
	}

	process := sup.Register(cmd, supervisor.RoleGameServer)

	logger.Info(ctx, "Server operational. Press Ctrl+C to stop.")

	if err = process.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info(ctx, "Interrupt received, shutting down")

			return nil
		}

		// A crashed server still gets a clean tunnel teardown.
		logger.WarnKV(ctx, "Game server exited abnormally", "error", err)
	}

	return nil
}

// selectProvider resolves the tunnel choice (flag or prompt) and builds the
// provider, collecting and persisting any credentials it needs.
func selectProvider(
	ctx context.Context,
	opts *Options,
	settings *config.Settings,
	creds *config.Credentials,
	fetcher *downloader.Downloader,
	sup *supervisor.Supervisor,
) (tunnel.Provider, error) {
	scanner := bufio.NewScanner(opts.Input)

	choice := opts.Tunnel
	if choice == "" {
		var err error
		if choice, err = chooseTunnel(scanner, opts.Output); err != nil {
			return nil, err
		}
	}

	switch choice {
	case TunnelNgrok:
		if err := ensureNgrokCredentials(ctx, scanner, opts, creds); err != nil {
			return nil, err
		}

		return tunnel.NewNgrok(settings, creds.TunnelToken, fetcher, sup), nil
	case TunnelPlayit:
		return tunnel.NewPlayit(installer.NewPlayit(nil), sup), nil
	default:
		return nil, fmt.Errorf("%q: %w", choice, errUnknownTunnel)
	}
}
