package launcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/downloader"
	"github.com/dbarrero/terraria-launcher/internal/supervisor"
)

// TestSelectProvider maps choices to providers and rejects unknown ones.
func TestSelectProvider(t *testing.T) {
	t.Parallel()

	var (
		ctx      = context.Background()
		settings = config.DefaultSettings()
		fetcher  = downloader.New()
		sup      = supervisor.New()
	)

	creds := &config.Credentials{
		TunnelToken:         strings.Repeat("t", 32),
		NotificationWebhook: "https://discord.com/api/webhooks/1/abc",
	}

	opts := &Options{
		Tunnel: TunnelNgrok,
		Input:  strings.NewReader(""),
		Output: &bytes.Buffer{},
	}

	provider, err := selectProvider(ctx, opts, settings, creds, fetcher, sup)
	require.NoError(t, err)
	require.Equal(t, "ngrok", provider.Name())

	opts.Tunnel = TunnelPlayit

	provider, err = selectProvider(ctx, opts, settings, creds, fetcher, sup)
	require.NoError(t, err)
	require.Equal(t, "playit", provider.Name())

	opts.Tunnel = "teleport"

	_, err = selectProvider(ctx, opts, settings, creds, fetcher, sup)
	require.ErrorIs(t, err, errUnknownTunnel)

	// The prompt path resolves choices too.
	opts.Tunnel = ""
	opts.Input = strings.NewReader("2\n")

	provider, err = selectProvider(ctx, opts, settings, creds, fetcher, sup)
	require.NoError(t, err)
	require.Equal(t, "playit", provider.Name())
}

// TestRun_MalformedCredentialsIsFatal aborts before any process launches.
func TestRun_MalformedCredentialsIsFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	credentialsPath := filepath.Join(dir, "creds.json")
	require.NoError(t, os.WriteFile(credentialsPath, []byte("{broken"), 0o600))

	err := Run(context.Background(), &Options{
		SettingsPath:    filepath.Join(dir, "missing.yaml"),
		CredentialsPath: credentialsPath,
		Tunnel:          TunnelPlayit,
		Input:           strings.NewReader(""),
		Output:          &bytes.Buffer{},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "credentials")
}
