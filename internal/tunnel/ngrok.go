package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dbarrero/terraria-launcher/internal/archive"
	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/downloader"
	"github.com/dbarrero/terraria-launcher/internal/logger"
	"github.com/dbarrero/terraria-launcher/internal/supervisor"
)

const (
	// DiscoveryDeadline is the hard limit on waiting for the tunnel address.
	DiscoveryDeadline = 30 * time.Second

	// ngrokBinary is the client executable name inside the unpacked archive.
	ngrokBinary = "ngrok"

	// executableMode marks the unpacked client as runnable.
	executableMode os.FileMode = 0o755

	// tunnelStartedMarker is the log fragment announcing a live tunnel.
	tunnelStartedMarker = "started tunnel"

	// terminateGrace is how long a failed client gets to exit on SIGTERM
	// before being killed.
	terminateGrace = 2 * time.Second
)

// addressPattern extracts the host:port from a "started tunnel" log line.
var addressPattern = regexp.MustCompile(`url=tcp://(\S+)`)

// errOutputEnded means the client exited before announcing an address.
var errOutputEnded = errors.New("tunnel client output ended before an address was announced")

// Ngrok is the streaming tunnel provider: its client process prints the
// assigned address to its own stdout shortly after launch.
type Ngrok struct {
	// settings supplies folders, the artifact URL, and the game port.
	settings *config.Settings
	// token authenticates the client with the ngrok service.
	token string
	// fetcher downloads the client archive when it is missing.
	fetcher *downloader.Downloader
	// sup owns the client subprocess once the tunnel is up.
	sup *supervisor.Supervisor
	// deadline bounds address discovery.
	deadline time.Duration
}

// NewNgrok creates the streaming provider.
func NewNgrok(settings *config.Settings, token string, fetcher *downloader.Downloader, sup *supervisor.Supervisor) *Ngrok {
	return &Ngrok{
		settings: settings,
		token:    token,
		fetcher:  fetcher,
		sup:      sup,
		deadline: DiscoveryDeadline,
	}
}

// Name identifies the provider.
func (n *Ngrok) Name() string {
	return "ngrok"
}

// BringUp ensures the client binary exists, authenticates it, launches it
// requesting a TCP tunnel on the game port, and scans its output for the
// assigned address. The returned session holds the supervised subprocess.
func (n *Ngrok) BringUp(ctx context.Context) (*Session, error) {
	executable := filepath.Join(n.settings.NgrokDir(), ngrokBinary)

	if err := n.ensureBinary(ctx, executable); err != nil {
		return nil, err
	}

	if err := n.authenticate(ctx, executable); err != nil {
		return nil, err
	}

	cmd := exec.Command(executable, "tcp", strconv.Itoa(n.settings.Port), "--log=stdout")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe ngrok output: %w", err)
	}

	// The client logs to both streams; scan them as one.
	cmd.Stderr = cmd.Stdout

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ngrok: %w", err)
	}

	address, err := scanAddress(ctx, stdout, n.deadline)
	if err != nil {
		terminate(cmd)

		return nil, fmt.Errorf("discover tunnel address: %w", err)
	}

	// Keep draining so the client never blocks on a full pipe.
	go func() {
		_, _ = io.Copy(io.Discard, stdout)
	}()

	logger.InfoKV(ctx, "Tunnel established", "address", address)

	return &Session{
		Address: address,
		Process: n.sup.Register(cmd, supervisor.RoleTunnel),
	}, nil
}

// ensureBinary downloads and unpacks the client if it is not present yet.
// The archive is removed on every exit path.
func (n *Ngrok) ensureBinary(ctx context.Context, executable string) error {
	if _, err := os.Stat(executable); err == nil {
		return nil
	}

	logger.Info(ctx, "Downloading ngrok client")

	zipPath := filepath.Join(n.settings.BaseDir, "ngrok.zip")

	defer func() {
		_ = os.Remove(zipPath)
	}()

	if err := n.fetcher.Fetch(ctx, n.settings.NgrokURL, zipPath); err != nil {
		return err
	}

	if err := archive.Unzip(zipPath, n.settings.NgrokDir()); err != nil {
		return fmt.Errorf("unpack ngrok: %w", err)
	}

	if err := os.Chmod(executable, executableMode); err != nil {
		return fmt.Errorf("mark ngrok executable: %w", err)
	}

	return nil
}

// authenticate registers the token with the client. A non-zero exit is fatal.
func (n *Ngrok) authenticate(ctx context.Context, executable string) error {
	output, err := exec.CommandContext(ctx, executable, "authtoken", n.token).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), ErrAuthFailed)
	}

	return nil
}

// terminate asks the client to exit and reaps it, escalating to a kill if
// it is still alive after terminateGrace.
func terminate(cmd *exec.Cmd) {
	_ = cmd.Process.Signal(syscall.SIGTERM)

	exited := make(chan struct{})

	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(terminateGrace):
		_ = cmd.Process.Kill()
		<-exited
	}
}

// scanAddress reads output lines until one announces the tunnel, the
// deadline elapses, or the stream ends. The read happens on its own
// goroutine so a stalled client cannot block past the deadline.
func scanAddress(ctx context.Context, output io.Reader, deadline time.Duration) (string, error) {
	var (
		lines = make(chan string)
		stop  = make(chan struct{})
	)

	defer close(stop)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(output)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", ErrTunnelTimeout
		case line, ok := <-lines:
			if !ok {
				return "", errOutputEnded
			}

			if address, found := parseTunnelLine(line); found {
				return address, nil
			}
		}
	}
}

// parseTunnelLine extracts the host:port from a "started tunnel" line.
// A token that is not a well-formed host:port is treated as no match.
func parseTunnelLine(line string) (string, bool) {
	if !strings.Contains(line, tunnelStartedMarker) {
		return "", false
	}

	match := addressPattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}

	address := strings.TrimSuffix(match[1], "\"")

	host, port, found := strings.Cut(address, ":")
	if !found || host == "" || strings.Contains(port, ":") {
		return "", false
	}

	if _, err := strconv.Atoi(port); err != nil {
		return "", false
	}

	return address, true
}
