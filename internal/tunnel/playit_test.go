package tunnel

import (
	"context"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/dbarrero/terraria-launcher/internal/installer"
	"github.com/dbarrero/terraria-launcher/internal/supervisor"
)

// fakeProcess satisfies ps.Process for verification tests.
type fakeProcess struct {
	pid  int
	name string
}

func (f fakeProcess) Pid() int           { return f.pid }
func (f fakeProcess) PPid() int          { return 0 }
func (f fakeProcess) Executable() string { return f.name }

// installedRunner satisfies installer.Runner pretending playit is installed.
type installedRunner struct{}

func (installedRunner) Run(context.Context, string, ...string) error { return nil }

func (installedRunner) Output(_ context.Context, name string, _ ...string) (string, error) {
	if name == "crontab" {
		return "@reboot playit\n", nil
	}

	return "/usr/bin/playit", nil
}

func (installedRunner) RunWithInput(context.Context, string, string, ...string) error {
	return nil
}

// newTestPlayit builds a provider that launches a harmless stand-in command
// and verifies against a canned process table.
func newTestPlayit(table []ps.Process) (*Playit, *supervisor.Supervisor) {
	sup := supervisor.New()

	p := NewPlayit(installer.NewPlayit(installedRunner{}), sup)
	p.grace = 10 * time.Millisecond
	p.command = []string{"sleep", "60"}
	p.listProcesses = func() ([]ps.Process, error) { return table, nil }

	return p, sup
}

// TestPlayitBringUp_DaemonAlive succeeds when the process table shows the
// daemon, and by design returns no address.
func TestPlayitBringUp_DaemonAlive(t *testing.T) {
	t.Parallel()

	p, sup := newTestPlayit([]ps.Process{
		fakeProcess{pid: 100, name: "systemd"},
		fakeProcess{pid: 2000, name: "playit"},
	})

	session, err := p.BringUp(context.Background())
	require.NoError(t, err)
	require.Empty(t, session.Address)
	require.NotNil(t, session.Process)
	require.Equal(t, supervisor.RoleTunnel, session.Process.Role)

	sup.ShutdownAll(context.Background())
}

// TestPlayitBringUp_VerificationFails reports ErrStartupVerification when no
// daemon shows up after the grace period.
func TestPlayitBringUp_VerificationFails(t *testing.T) {
	t.Parallel()

	p, _ := newTestPlayit([]ps.Process{
		fakeProcess{pid: 100, name: "systemd"},
	})

	_, err := p.BringUp(context.Background())
	require.ErrorIs(t, err, ErrStartupVerification)
}

// TestPlayitBringUp_CanceledDuringGrace stops cleanly mid-grace.
func TestPlayitBringUp_CanceledDuringGrace(t *testing.T) {
	t.Parallel()

	p, _ := newTestPlayit(nil)
	p.grace = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.BringUp(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
