package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestBackoffDelay checks the exponential schedule.
func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	require.Equal(t, time.Second, backoffDelay(0))
	require.Equal(t, 2*time.Second, backoffDelay(1))
	require.Equal(t, 4*time.Second, backoffDelay(2))
	require.Equal(t, 8*time.Second, backoffDelay(3))
}

// TestFetch_ExhaustsRetries verifies a permanently failing server is retried
// exactly maxAttempts times and reported as a FetchFailure.
func TestFetch_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := New(WithMaxAttempts(4))
	// Keep the test fast; the schedule itself is covered by TestBackoffDelay.
	d.backoff = func(int) time.Duration { return time.Millisecond }

	dest := filepath.Join(t.TempDir(), "artifact.zip")

	err := d.Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)

	var failure *FetchFailure
	require.ErrorAs(t, err, &failure)
	require.Equal(t, 4, failure.Attempts)
	require.Equal(t, int32(4), attempts.Load())

	// Nothing that looks like a complete artifact is left behind.
	_, err = os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFetch_SucceedsAfterFailures covers retry followed by success and the
// cleanup of temporary files.
func TestFetch_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		_, _ = w.Write([]byte("artifact-contents"))
	}))
	defer server.Close()

	d := New()
	d.backoff = func(int) time.Duration { return time.Millisecond }

	dir := t.TempDir()
	dest := filepath.Join(dir, "artifact.zip")

	require.NoError(t, d.Fetch(context.Background(), server.URL, dest))

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "artifact-contents", string(contents))

	// No stray temporary files.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestFetch_ContextCanceledDuringBackoff returns promptly instead of sleeping out the schedule.
func TestFetch_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := New()
	d.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Fetch(ctx, server.URL, filepath.Join(t.TempDir(), "artifact.zip"))
	require.Error(t, err)

	var failure *FetchFailure
	require.ErrorAs(t, err, &failure)
	require.ErrorIs(t, failure.Err, context.Canceled)
}

// TestFetch_OverwritesExisting replaces a stale destination file.
func TestFetch_OverwritesExisting(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.zip")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o644))

	require.NoError(t, New().Fetch(context.Background(), server.URL, dest))

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(contents))
}
