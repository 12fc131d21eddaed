package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds launcher behavior that rarely changes between runs.
// The file is optional: a missing file means "all defaults".
type Settings struct {
	// BaseDir is the working directory that server, worlds and tunnel
	// folders are created under.
	BaseDir string `yaml:"base_dir"`
	// ServerFolder is the directory the Terraria server is unpacked into.
	ServerFolder string `yaml:"server_folder"`
	// WorldsFolder is the directory world files are stored in.
	WorldsFolder string `yaml:"worlds_folder"`
	// NgrokFolder is the directory the ngrok client is unpacked into.
	NgrokFolder string `yaml:"ngrok_folder"`
	// UserWorldsDir is the per-user directory Terraria reads worlds from.
	// It is replaced with a symlink to WorldsFolder at startup.
	UserWorldsDir string `yaml:"user_worlds_dir"`
	// ServerURL is where the Terraria dedicated server archive is downloaded from.
	ServerURL string `yaml:"server_url"`
	// NgrokURL is where the ngrok client archive is downloaded from.
	NgrokURL string `yaml:"ngrok_url"`
	// Port is the TCP port the game server listens on and the tunnel forwards to.
	Port int `yaml:"port"`
	// MOTD is the message of the day written into the generated server config.
	MOTD string `yaml:"motd"`
	// SaveInterval is how often the world-save monitor signals the server.
	SaveInterval time.Duration `yaml:"save_interval"`
	// UpdateFolder is the URL where launcher update artifacts are hosted.
	UpdateFolder string `yaml:"update_folder"`
}

const (
	// DefaultSettingsFilename is the default filename for launcher settings.
	DefaultSettingsFilename = "terraria-launcher.yaml"

	// DefaultServerURL points at the Terraria dedicated server archive.
	DefaultServerURL = "https://terraria.org/api/download/mobile-dedicated-server/terraria-server-1449.zip"

	// DefaultNgrokURL points at the ngrok client archive for linux/amd64.
	DefaultNgrokURL = "https://bin.equinox.io/c/bNyj1mQVY4c/ngrok-stable-linux-amd64.zip"

	// DefaultPort is the standard Terraria server port.
	DefaultPort = 7777

	// DefaultMOTD greets players connecting to the server.
	DefaultMOTD = "Welcome to the server!"

	// DefaultSaveInterval is how often the world is saved in the background.
	DefaultSaveInterval = 300 * time.Second
)

var errInvalidPort = errors.New("port must be between 1 and 65535")

// DefaultSettings returns settings with every field at its default value.
func DefaultSettings() *Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Settings{
		BaseDir:       ".",
		ServerFolder:  "terraria-server",
		WorldsFolder:  "worlds",
		NgrokFolder:   "ngrok",
		UserWorldsDir: filepath.Join(home, ".local", "share", "Terraria", "Worlds"),
		ServerURL:     DefaultServerURL,
		NgrokURL:      DefaultNgrokURL,
		Port:          DefaultPort,
		MOTD:          DefaultMOTD,
		SaveInterval:  DefaultSaveInterval,
	}
}

// LoadSettings reads settings from the provided path, filling any field the
// file leaves empty with its default. A missing file yields pure defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		path = DefaultSettingsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(contents, settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// ValidateSettings checks the provided settings and re-applies defaults
// for empty fields.
func ValidateSettings(settings *Settings) error {
	defaults := DefaultSettings()

	if settings.BaseDir == "" {
		settings.BaseDir = defaults.BaseDir
	}

	if settings.ServerFolder == "" {
		settings.ServerFolder = defaults.ServerFolder
	}

	if settings.WorldsFolder == "" {
		settings.WorldsFolder = defaults.WorldsFolder
	}

	if settings.NgrokFolder == "" {
		settings.NgrokFolder = defaults.NgrokFolder
	}

	if settings.UserWorldsDir == "" {
		settings.UserWorldsDir = defaults.UserWorldsDir
	}

	if settings.ServerURL == "" {
		settings.ServerURL = defaults.ServerURL
	}

	if settings.NgrokURL == "" {
		settings.NgrokURL = defaults.NgrokURL
	}

	if settings.Port == 0 {
		settings.Port = defaults.Port
	}

	if settings.Port < 1 || settings.Port > 65535 {
		return errInvalidPort
	}

	if settings.MOTD == "" {
		settings.MOTD = defaults.MOTD
	}

	if settings.SaveInterval <= 0 {
		settings.SaveInterval = defaults.SaveInterval
	}

	if settings.UpdateFolder == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.UpdateFolder); err != nil {
		return fmt.Errorf("invalid update folder URI: %w", err)
	}

	return nil
}

// ServerDir returns the absolute server folder under the base directory.
func (s *Settings) ServerDir() string {
	return filepath.Join(s.BaseDir, s.ServerFolder)
}

// WorldsDir returns the absolute worlds folder under the base directory.
func (s *Settings) WorldsDir() string {
	return filepath.Join(s.BaseDir, s.WorldsFolder)
}

// NgrokDir returns the absolute ngrok folder under the base directory.
func (s *Settings) NgrokDir() string {
	return filepath.Join(s.BaseDir, s.NgrokFolder)
}
