package tunnel

import (
	"context"
	"errors"

	"github.com/dbarrero/terraria-launcher/internal/supervisor"
)

// Session is the result of a successful tunnel bring-up.
type Session struct {
	// Address is the routable host:port of the tunnel. It is empty for
	// providers whose daemon reports the address out-of-band.
	Address string
	// Process is the backing subprocess, already registered with the
	// supervisor, or nil if the provider does not need one.
	Process *supervisor.ManagedProcess
}

// Provider brings up a network tunnel exposing the local game port.
// Exactly two implementations exist (ngrok and playit); the orchestrator
// selects one at startup and never looks inside. Teardown goes through the
// supervisor, which owns every session process.
type Provider interface {
	// Name identifies the provider for logs and prompts.
	Name() string
	// BringUp starts the tunnel and returns its session.
	BringUp(ctx context.Context) (*Session, error)
}

var (
	// ErrAuthFailed means the tunnel client rejected the configured token.
	ErrAuthFailed = errors.New("tunnel authentication failed")
	// ErrTunnelTimeout means the client never announced its address in time.
	ErrTunnelTimeout = errors.New("timed out waiting for tunnel address")
	// ErrInstallFailed means the tunnel client could not be installed.
	ErrInstallFailed = errors.New("tunnel client installation failed")
	// ErrStartupVerification means the daemon was not running after its grace period.
	ErrStartupVerification = errors.New("tunnel daemon did not start")
)
