package launcher

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbarrero/terraria-launcher/internal/config"
)

// TestChooseTunnel retries invalid answers and maps numbers to providers.
func TestChooseTunnel(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	choice, err := chooseTunnel(bufio.NewScanner(strings.NewReader("x\n3\n1\n")), &out)
	require.NoError(t, err)
	require.Equal(t, TunnelNgrok, choice)
	require.Contains(t, out.String(), "Invalid option")

	choice, err = chooseTunnel(bufio.NewScanner(strings.NewReader("2\n")), &out)
	require.NoError(t, err)
	require.Equal(t, TunnelPlayit, choice)

	// Input ending mid-prompt is an error.
	_, err = chooseTunnel(bufio.NewScanner(strings.NewReader("")), &out)
	require.ErrorIs(t, err, errInputClosed)
}

// TestEnsureNgrokCredentials_PromptsAndPersists collects token and webhook,
// persisting after each mutation.
func TestEnsureNgrokCredentials_PromptsAndPersists(t *testing.T) {
	t.Parallel()

	var (
		token   = strings.Repeat("t", 32)
		webhook = "https://discord.com/api/webhooks/1/abc"
		input   = token + "\ny\n" + webhook + "\n"
		path    = filepath.Join(t.TempDir(), "creds.json")
	)

	opts := &Options{
		CredentialsPath: path,
		Output:          &bytes.Buffer{},
	}
	creds := &config.Credentials{}

	err := ensureNgrokCredentials(context.Background(), bufio.NewScanner(strings.NewReader(input)), opts, creds)
	require.NoError(t, err)
	require.Equal(t, token, creds.TunnelToken)
	require.Equal(t, webhook, creds.NotificationWebhook)

	loaded, err := config.LoadCredentials(path)
	require.NoError(t, err)
	require.Equal(t, token, loaded.TunnelToken)
	require.Equal(t, webhook, loaded.NotificationWebhook)
}

// TestEnsureNgrokCredentials_RejectsBadToken refuses to persist a token that
// fails shape validation.
func TestEnsureNgrokCredentials_RejectsBadToken(t *testing.T) {
	t.Parallel()

	opts := &Options{
		CredentialsPath: filepath.Join(t.TempDir(), "creds.json"),
		Output:          &bytes.Buffer{},
	}

	err := ensureNgrokCredentials(
		context.Background(),
		bufio.NewScanner(strings.NewReader("short\n")),
		opts,
		&config.Credentials{},
	)
	require.ErrorIs(t, err, config.ErrInvalidTunnelToken)
}

// TestEnsureNgrokCredentials_WebhookDeclined leaves the webhook empty.
func TestEnsureNgrokCredentials_WebhookDeclined(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "creds.json")
	opts := &Options{
		CredentialsPath: path,
		Output:          &bytes.Buffer{},
	}
	creds := &config.Credentials{TunnelToken: strings.Repeat("t", 32)}

	err := ensureNgrokCredentials(context.Background(), bufio.NewScanner(strings.NewReader("n\n")), opts, creds)
	require.NoError(t, err)
	require.Empty(t, creds.NotificationWebhook)
}
