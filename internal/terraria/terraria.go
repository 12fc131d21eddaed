package terraria

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dbarrero/terraria-launcher/internal/archive"
	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/downloader"
	"github.com/dbarrero/terraria-launcher/internal/logger"
)

const (
	// BinaryName is the dedicated server executable inside the archive.
	BinaryName = "TerrariaServer.bin.x86_64"

	// ProcessName is the fragment the save monitor matches in the process table.
	ProcessName = "TerrariaServer"

	// ConfigFilename is the generated plaintext server configuration.
	ConfigFilename = "serverconfig.txt"

	// binaryMode marks the server binary as runnable.
	binaryMode os.FileMode = 0o755

	// configMode is world-readable since the file holds no secrets.
	configMode os.FileMode = 0o644

	// dirMode is used for the folders the launcher creates.
	dirMode os.FileMode = 0o755
)

// Server installs and launches the Terraria dedicated server.
type Server struct {
	// settings supplies folders, the artifact URL, port and MOTD.
	settings *config.Settings
	// fetcher downloads the server archive when it is missing.
	fetcher *downloader.Downloader
}

// NewServer creates a Server.
func NewServer(settings *config.Settings, fetcher *downloader.Downloader) *Server {
	return &Server{
		settings: settings,
		fetcher:  fetcher,
	}
}

// SetupDirectories creates the folders the server and its worlds live in.
func (s *Server) SetupDirectories() error {
	for _, dir := range []string{
		s.settings.WorldsDir(),
		filepath.Join(s.settings.ServerDir(), "logs"),
		filepath.Dir(s.settings.UserWorldsDir),
	} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}

// LinkWorlds points the per-user Terraria worlds directory at the launcher's
// worlds folder. An existing directory or foreign symlink is moved aside to a
// timestamped backup first; a link that already points at our folder is left
// alone. The link is established once at startup, before any process runs.
func (s *Server) LinkWorlds(ctx context.Context) error {
	worlds, err := filepath.Abs(s.settings.WorldsDir())
	if err != nil {
		return fmt.Errorf("resolve worlds folder: %w", err)
	}

	link := s.settings.UserWorldsDir

	if info, lerr := os.Lstat(link); lerr == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			if current, rerr := os.Readlink(link); rerr == nil && current == worlds {
				logger.Info(ctx, "Worlds symlink already in place")

				return nil
			}
		}

		backup := link + "_backup_" + strconv.FormatInt(time.Now().Unix(), 10)
		if err = os.Rename(link, backup); err != nil {
			return fmt.Errorf("back up existing worlds path: %w", err)
		}

		logger.Infof(ctx, "Existing worlds path moved to %s", backup)
	}

	if err = os.Symlink(worlds, link); err != nil {
		return fmt.Errorf("link worlds folder: %w", err)
	}

	logger.Infof(ctx, "Worlds symlink created: %s -> %s", link, worlds)

	return nil
}

// Install downloads and unpacks the dedicated server unless its binary is
// already present, marks the binary executable, and generates the server
// configuration. The downloaded archive is removed on every exit path.
func (s *Server) Install(ctx context.Context) error {
	if _, err := archive.FindFile(s.settings.ServerDir(), BinaryName); err == nil {
		logger.Info(ctx, "Terraria server already installed")

		return nil
	}

	logger.Info(ctx, "Downloading Terraria server")

	zipPath := filepath.Join(s.settings.BaseDir, "terraria-server.zip")

	defer func() {
		_ = os.Remove(zipPath)
	}()

	if err := s.fetcher.Fetch(ctx, s.settings.ServerURL, zipPath); err != nil {
		return err
	}

	if err := archive.Unzip(zipPath, s.settings.ServerDir()); err != nil {
		return fmt.Errorf("unpack server: %w", err)
	}

	binary, err := archive.FindFile(s.settings.ServerDir(), BinaryName)
	if err != nil {
		return fmt.Errorf("server binary missing from archive: %w", err)
	}

	if err = os.Chmod(binary, binaryMode); err != nil {
		return fmt.Errorf("mark server executable: %w", err)
	}

	logger.Infof(ctx, "Server binary installed at %s", binary)

	return s.WriteConfig()
}

// WriteConfig generates the plaintext server configuration, one key=value
// per line.
func (s *Server) WriteConfig() error {
	contents := fmt.Sprintf("# generated by terraria-launcher\nport=%d\nmotd=%s\n", s.settings.Port, s.settings.MOTD)

	path := filepath.Join(s.settings.ServerDir(), ConfigFilename)
	if err := os.WriteFile(path, []byte(contents), configMode); err != nil {
		return fmt.Errorf("write server config: %w", err)
	}

	return nil
}

// Start launches the dedicated server pointing at the generated config.
// The process inherits the parent's standard streams so the operator can
// use the server console directly. The caller owns waiting on the command.
func (s *Server) Start(ctx context.Context) (*exec.Cmd, error) {
	binary, err := archive.FindFile(s.settings.ServerDir(), BinaryName)
	if err != nil {
		return nil, fmt.Errorf("server executable not found: %w", err)
	}

	configPath, err := filepath.Abs(filepath.Join(s.settings.ServerDir(), ConfigFilename))
	if err != nil {
		return nil, fmt.Errorf("resolve server config: %w", err)
	}

	cmd := exec.Command(binary, "-config", configPath)
	cmd.Dir = filepath.Dir(binary)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}

	logger.InfoKV(ctx, "Terraria server started", "pid", cmd.Process.Pid, "port", s.settings.Port)

	return cmd, nil
}
