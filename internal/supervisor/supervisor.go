package supervisor

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/dbarrero/terraria-launcher/internal/logger"
)

// Role classifies what a supervised process is for.
type Role string

const (
	// RoleTunnel marks the tunnel client subprocess.
	RoleTunnel Role = "tunnel"
	// RoleGameServer marks the game server subprocess.
	RoleGameServer Role = "gameServer"
)

// State is the lifecycle state of a managed process.
type State int32

const (
	// StateStarting means the process has been spawned but not yet confirmed running.
	StateStarting State = iota
	// StateRunning means the process is alive and tracked.
	StateRunning
	// StateStopping means termination has been requested.
	StateStopping
	// StateStopped means the process has exited or was killed.
	StateStopped
)

// String renders the state for logs.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// ShutdownWait bounds how long termination waits for each process to exit.
	ShutdownWait = 10 * time.Second

	// saveSignal asks the game server to save the world without stopping.
	saveSignal = syscall.SIGUSR1
)

// ManagedProcess is one supervised OS process. It is owned by the Supervisor
// from registration until the process exits or is force-terminated.
type ManagedProcess struct {
	// Role classifies the process.
	Role Role
	// Pid is the OS process identifier.
	Pid int

	// state tracks the lifecycle, accessed atomically.
	state atomic.Int32
	// exited is closed once the process has been reaped.
	exited chan struct{}
	// waitErr holds the result of reaping, valid after exited is closed.
	waitErr error

	// signalFn delivers a signal to the process.
	signalFn func(os.Signal) error
	// killFn force-terminates the process.
	killFn func() error
}

// State returns the current lifecycle state.
func (p *ManagedProcess) State() State {
	return State(p.state.Load())
}

// Wait blocks until the process exits or the context is canceled.
// It returns the process exit error, which is nil for a clean exit.
func (p *ManagedProcess) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.exited:
		return p.waitErr
	}
}

// Supervisor tracks every spawned subprocess and guarantees an orderly
// shutdown sequence regardless of how the run ends. The tracked set is only
// appended to until shutdown.
type Supervisor struct {
	// mu guards processes.
	mu sync.Mutex
	// processes is the tracked set in registration order.
	processes []*ManagedProcess
	// shutdownOnce ensures the teardown sequence runs exactly once.
	shutdownOnce sync.Once
	// wait bounds how long terminate waits before killing.
	wait time.Duration
}

// New creates an empty Supervisor.
func New() *Supervisor {
	return &Supervisor{wait: ShutdownWait}
}

// Register adds an already-started command to the tracked set and starts
// reaping it in the background. The returned ManagedProcess is the only
// handle callers should wait on; the underlying exec.Cmd must not be
// waited on elsewhere.
func (s *Supervisor) Register(cmd *exec.Cmd, role Role) *ManagedProcess {
	p := &ManagedProcess{
		Role:     role,
		Pid:      cmd.Process.Pid,
		exited:   make(chan struct{}),
		signalFn: cmd.Process.Signal,
		killFn:   cmd.Process.Kill,
	}
	p.state.Store(int32(StateRunning))

	go func() {
		p.waitErr = cmd.Wait()
		p.state.Store(int32(StateStopped))
		close(p.exited)
	}()

	s.add(p)

	return p
}

// add appends a process to the tracked set.
func (s *Supervisor) add(p *ManagedProcess) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processes = append(s.processes, p)
}

// ShutdownAll terminates every tracked process: send SIGTERM, wait up to
// ShutdownWait for exit, then kill. It runs exactly once per Supervisor;
// later calls are no-ops. Individual termination failures are logged and
// never block the remaining processes.
func (s *Supervisor) ShutdownAll(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		tracked := make([]*ManagedProcess, len(s.processes))
		copy(tracked, s.processes)
		s.mu.Unlock()

		if len(tracked) == 0 {
			return
		}

		logger.Infof(ctx, "Stopping %d tracked processes", len(tracked))

		for _, p := range tracked {
			s.terminate(ctx, p)
		}
	})
}

// terminate performs the graceful-then-forced stop of a single process.
func (s *Supervisor) terminate(ctx context.Context, p *ManagedProcess) {
	if p.State() == StateStopped {
		return
	}

	p.state.Store(int32(StateStopping))

	if err := p.signalFn(syscall.SIGTERM); err != nil {
		logger.ErrorKV(ctx, "Failed to signal process", "role", p.Role, "pid", p.Pid, "error", err)
	}

	select {
	case <-p.exited:
		logger.InfoKV(ctx, "Process stopped", "role", p.Role, "pid", p.Pid)
	case <-time.After(s.wait):
		logger.WarnKV(ctx, "Process did not exit in time, killing", "role", p.Role, "pid", p.Pid)

		if err := p.killFn(); err != nil {
			logger.ErrorKV(ctx, "Failed to kill process", "role", p.Role, "pid", p.Pid, "error", err)
		}
	}

	p.state.Store(int32(StateStopped))
}

// StartSaveMonitor launches a detached goroutine that periodically finds
// processes whose executable name contains processName and sends them the
// save-world signal. Errors are logged and the loop continues on the next
// tick. The goroutine is never joined; it stops mattering when the program
// exits or the context is canceled.
func (s *Supervisor) StartSaveMonitor(ctx context.Context, processName string, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := signalByName(processName, saveSignal); err != nil {
					logger.ErrorKV(ctx, "Save monitor iteration failed", "error", err)
				}
			}
		}
	}()
}

// signalByName delivers sig to every running process whose executable name
// contains name.
func signalByName(name string, sig os.Signal) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	for _, candidate := range processList {
		if !strings.Contains(candidate.Executable(), name) {
			continue
		}

		target, err := os.FindProcess(candidate.Pid())
		if err != nil {
			return err
		}

		if err = target.Signal(sig); err != nil {
			return err
		}
	}

	return nil
}
