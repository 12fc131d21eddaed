package installer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dbarrero/terraria-launcher/internal/logger"
)

// Runner executes external commands. The exec-backed implementation is used
// in production; tests substitute a recording fake.
type Runner interface {
	// Run executes a command and discards its output.
	Run(ctx context.Context, name string, args ...string) error
	// Output executes a command and returns its combined output.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// RunWithInput executes a command feeding input to its stdin.
	RunWithInput(ctx context.Context, input, name string, args ...string) error
}

// execRunner runs commands through os/exec.
type execRunner struct{}

// Run executes a command and discards its output.
func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output executes a command and returns its combined output.
func (execRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()

	return string(out), err
}

// RunWithInput executes a command feeding input to its stdin.
func (execRunner) RunWithInput(ctx context.Context, input, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(input)

	return cmd.Run()
}

// autostartEntry is the crontab line that starts the playit daemon on boot.
const autostartEntry = "@reboot playit"

// installCommands are the shell steps that register the playit apt source
// and install the package.
var installCommands = []string{
	"curl -SsL https://playit-cloud.github.io/ppa/key.gpg | gpg --dearmor | sudo tee /etc/apt/trusted.gpg.d/playit.gpg >/dev/null",
	`echo "deb [signed-by=/etc/apt/trusted.gpg.d/playit.gpg] https://playit-cloud.github.io/ppa/data ./" | sudo tee /etc/apt/sources.list.d/playit-cloud.list`,
	"sudo apt update",
	"sudo apt install playit -y",
}

// Playit installs and registers the playit daemon through OS tooling.
type Playit struct {
	// runner executes the external commands.
	runner Runner
}

// NewPlayit creates a Playit installer; a nil runner means real exec.
func NewPlayit(runner Runner) *Playit {
	if runner == nil {
		runner = execRunner{}
	}

	return &Playit{runner: runner}
}

// IsInstalled reports whether the playit binary is on PATH.
func (p *Playit) IsInstalled(ctx context.Context) bool {
	_, err := p.runner.Output(ctx, "which", "playit")

	return err == nil
}

// Install registers the playit apt repository and installs the package.
func (p *Playit) Install(ctx context.Context) error {
	for _, command := range installCommands {
		logger.Infof(ctx, "Running: %s", command)

		if err := p.runner.Run(ctx, "sh", "-c", command); err != nil {
			return fmt.Errorf("run %q: %w", command, err)
		}
	}

	return nil
}

// EnsureAutostart makes sure exactly one @reboot crontab entry for the playit
// daemon exists. Calling it again changes nothing.
func (p *Playit) EnsureAutostart(ctx context.Context) error {
	// A missing crontab exits non-zero with empty output, which is fine.
	current, _ := p.runner.Output(ctx, "crontab", "-l")

	if strings.Contains(current, autostartEntry) {
		logger.Info(ctx, "Autostart entry already present")

		return nil
	}

	updated := autostartEntry + "\n"
	if trimmed := strings.TrimSpace(current); trimmed != "" {
		updated = trimmed + "\n" + updated
	}

	if err := p.runner.RunWithInput(ctx, updated, "crontab", "-"); err != nil {
		return fmt.Errorf("install crontab: %w", err)
	}

	logger.Info(ctx, "Autostart entry added")

	return nil
}
