package tunnel

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/dbarrero/terraria-launcher/internal/installer"
	"github.com/dbarrero/terraria-launcher/internal/logger"
	"github.com/dbarrero/terraria-launcher/internal/supervisor"
)

const (
	// StartupGrace is the fixed wait before verifying the daemon is alive.
	StartupGrace = 2 * time.Second

	// playitExecutable is the daemon binary name, used both to launch it
	// and to find it in the process table.
	playitExecutable = "playit"
)

// Playit is the background tunnel provider: its client daemonizes itself
// and reports the assigned address through its own out-of-band mechanism
// (`playit show`), never synchronously at launch. BringUp therefore only
// guarantees the daemon is alive; the session carries no address.
type Playit struct {
	// inst installs the daemon and registers its autostart entry.
	inst *installer.Playit
	// sup owns the daemon subprocess once it is up.
	sup *supervisor.Supervisor
	// grace is the wait before startup verification.
	grace time.Duration
	// listProcesses enumerates running processes; overridable in tests.
	listProcesses func() ([]ps.Process, error)
	// command is the daemon launch command line; overridable in tests.
	command []string
}

// NewPlayit creates the background provider.
func NewPlayit(inst *installer.Playit, sup *supervisor.Supervisor) *Playit {
	return &Playit{
		inst:          inst,
		sup:           sup,
		grace:         StartupGrace,
		listProcesses: ps.Processes,
		command:       []string{playitExecutable},
	}
}

// Name identifies the provider.
func (p *Playit) Name() string {
	return "playit"
}

// BringUp installs the daemon if needed, launches it detached with its
// output discarded, verifies after a short grace period that it is running,
// and ensures the boot-time autostart entry exists.
func (p *Playit) BringUp(ctx context.Context) (*Session, error) {
	if !p.inst.IsInstalled(ctx) {
		logger.Info(ctx, "Installing playit")

		if err := p.inst.Install(ctx); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInstallFailed)
		}
	}

	logger.Info(ctx, "Starting playit daemon")

	cmd := exec.Command(p.command[0], p.command[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start playit: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		_ = cmd.Wait()

		return nil, ctx.Err()
	case <-time.After(p.grace):
	}

	if err := p.verifyRunning(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()

		return nil, err
	}

	if err := p.inst.EnsureAutostart(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to register autostart entry", "error", err)
	}

	logger.Info(ctx, "Playit is running; run 'playit show' in another terminal to see the address")

	return &Session{
		Process: p.sup.Register(cmd, supervisor.RoleTunnel),
	}, nil
}

// verifyRunning checks the process table for at least one playit process.
func (p *Playit) verifyRunning() error {
	processes, err := p.listProcesses()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, candidate := range processes {
		if strings.Contains(candidate.Executable(), playitExecutable) {
			return nil
		}
	}

	return ErrStartupVerification
}
