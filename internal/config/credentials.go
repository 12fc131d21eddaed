package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Credentials stores the secrets the launcher needs to expose a server.
// Both fields are optional: an empty token simply means ngrok has not been
// configured yet, and an empty webhook disables notifications.
type Credentials struct {
	// TunnelToken is the ngrok authentication token.
	TunnelToken string `json:"tunnel_token"`
	// NotificationWebhook is the Discord webhook URL to announce the tunnel address.
	NotificationWebhook string `json:"notification_webhook"`
}

const (
	// DefaultCredentialsFilename is the default filename for persisted credentials.
	DefaultCredentialsFilename = "terraria-launcher-credentials.json"

	// CredentialsFilePermissions restricts the credentials file to its owner.
	CredentialsFilePermissions = 0o600
)

var (
	// tunnelTokenPattern matches the shape of an ngrok authentication token.
	tunnelTokenPattern = regexp.MustCompile(`^[0-9a-zA-Z_]{32,}$`)
	// webhookPattern matches the shape of a Discord webhook URL.
	webhookPattern = regexp.MustCompile(`^https://discord\.com/api/webhooks/\d+/[a-zA-Z0-9_-]+$`)

	// ErrInvalidTunnelToken is returned when a configured token does not look like one.
	ErrInvalidTunnelToken = errors.New("tunnel token has invalid format")
	// ErrInvalidWebhook is returned when a configured webhook URL does not look like one.
	ErrInvalidWebhook = errors.New("notification webhook has invalid format")

	// errCredentialsNotSet is returned when a nil Credentials value is provided.
	errCredentialsNotSet = errors.New("credentials are not set")
)

// LoadCredentials reads the credentials file from the provided path.
// A missing file is not an error: it yields empty credentials, mirroring a
// first run before the user has entered anything. Malformed JSON or invalid
// field shapes are fatal.
func LoadCredentials(path string) (*Credentials, error) {
	if path == "" {
		path = DefaultCredentialsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{}, nil
		}

		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(contents, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal credentials: %w", err)
	}

	if err := ValidateCredentials(&creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// SaveCredentials validates and writes credentials to the provided path
// with owner-only permissions.
func SaveCredentials(path string, creds *Credentials) error {
	if creds == nil {
		return errCredentialsNotSet
	}

	if path == "" {
		path = DefaultCredentialsFilename
	}

	if err := ValidateCredentials(creds); err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, CredentialsFilePermissions); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	return nil
}

// ValidateCredentials checks field shapes. Empty fields are allowed.
func ValidateCredentials(creds *Credentials) error {
	if creds == nil {
		return errCredentialsNotSet
	}

	if creds.TunnelToken != "" && !tunnelTokenPattern.MatchString(creds.TunnelToken) {
		return ErrInvalidTunnelToken
	}

	if creds.NotificationWebhook != "" && !webhookPattern.MatchString(creds.NotificationWebhook) {
		return ErrInvalidWebhook
	}

	return nil
}
