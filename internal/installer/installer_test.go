package installer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNoCrontab = errors.New("no crontab for user")

// fakeRunner records executed commands and serves canned crontab output.
type fakeRunner struct {
	// crontab is what "crontab -l" returns; empty means no crontab yet.
	crontab string
	// ran collects Run invocations as joined command lines.
	ran []string
	// installed collects crontab contents passed to RunWithInput.
	installed []string
}

// Run records the invocation and succeeds.
func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.ran = append(f.ran, name+" "+strings.Join(args, " "))

	return nil
}

// Output serves the canned crontab for "crontab -l" and fails "which" lookups.
func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	if name == "crontab" {
		if f.crontab == "" {
			return "", errNoCrontab
		}

		return f.crontab, nil
	}

	if name == "which" {
		return "", errors.New(args[0] + " not found")
	}

	return "", nil
}

// RunWithInput records installed crontab contents and updates the canned state.
func (f *fakeRunner) RunWithInput(_ context.Context, input, _ string, _ ...string) error {
	f.installed = append(f.installed, input)
	f.crontab = input

	return nil
}

// TestEnsureAutostart_Idempotent registers the entry once and verifies a
// second call changes nothing.
func TestEnsureAutostart_Idempotent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	playit := NewPlayit(runner)
	ctx := context.Background()

	require.NoError(t, playit.EnsureAutostart(ctx))
	require.Len(t, runner.installed, 1)
	require.Equal(t, 1, strings.Count(runner.crontab, autostartEntry))

	require.NoError(t, playit.EnsureAutostart(ctx))
	require.Len(t, runner.installed, 1)
	require.Equal(t, 1, strings.Count(runner.crontab, autostartEntry))
}

// TestEnsureAutostart_PreservesExistingEntries appends instead of replacing.
func TestEnsureAutostart_PreservesExistingEntries(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{crontab: "0 3 * * * /usr/local/bin/backup\n"}
	playit := NewPlayit(runner)

	require.NoError(t, playit.EnsureAutostart(context.Background()))
	require.Contains(t, runner.crontab, "backup")
	require.Contains(t, runner.crontab, autostartEntry)
}

// TestInstall_RunsEveryStep executes all apt commands through a shell.
func TestInstall_RunsEveryStep(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	playit := NewPlayit(runner)

	require.NoError(t, playit.Install(context.Background()))
	require.Len(t, runner.ran, len(installCommands))

	for _, line := range runner.ran {
		require.True(t, strings.HasPrefix(line, "sh -c "))
	}
}

// TestIsInstalled reflects the "which" lookup result.
func TestIsInstalled(t *testing.T) {
	t.Parallel()

	playit := NewPlayit(&fakeRunner{})
	require.False(t, playit.IsInstalled(context.Background()))
}
