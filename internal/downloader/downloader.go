package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dbarrero/terraria-launcher/internal/logger"
)

const (
	// DefaultMaxAttempts is the total number of download attempts per artifact.
	DefaultMaxAttempts = 3

	// DefaultTimeout bounds each HTTP request, connect and read included.
	DefaultTimeout = 15 * time.Second

	// copyChunkSize bounds memory use while streaming large artifacts to disk.
	copyChunkSize = 8192
)

// FetchFailure is returned after every attempt for an artifact has failed.
type FetchFailure struct {
	// URL is the artifact that could not be fetched.
	URL string
	// Attempts is how many times the fetch was tried.
	Attempts int
	// Err is the error from the last attempt.
	Err error
}

// Error implements the error interface.
func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap exposes the last attempt's error for errors.Is/As.
func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// Downloader fetches remote artifacts to local paths with bounded retry.
type Downloader struct {
	// client performs the HTTP requests.
	client *http.Client
	// maxAttempts is the total number of attempts per fetch.
	maxAttempts int
	// backoff returns the wait before retrying after the given zero-based attempt.
	backoff func(attempt int) time.Duration
}

// Option configures downloader behaviour.
type Option func(*Downloader)

// WithMaxAttempts overrides the total number of attempts per fetch.
func WithMaxAttempts(attempts int) Option {
	return func(d *Downloader) {
		if attempts > 0 {
			d.maxAttempts = attempts
		}
	}
}

// WithClient overrides the HTTP client.
func WithClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// New creates a Downloader with a bounded-timeout HTTP client.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		backoff:     backoffDelay,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Fetch downloads url to dest, overwriting any existing file. Network-level
// failures (timeouts, connection errors, non-2xx statuses) are retried with
// exponential backoff; exhausting every attempt returns a *FetchFailure.
// The destination only ever holds a complete artifact: the body is streamed
// to a temporary file renamed into place on success.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) error {
	var lastErr error

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		lastErr = d.fetchOnce(ctx, url, dest)
		if lastErr == nil {
			logger.Infof(ctx, "Downloaded %s", filepath.Base(dest))
			return nil
		}

		if attempt == d.maxAttempts-1 {
			break
		}

		wait := d.backoff(attempt)
		logger.Warnf(ctx, "Retrying download (%d/%d) in %s: %v", attempt+1, d.maxAttempts, wait, lastErr)

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()

			return &FetchFailure{URL: url, Attempts: attempt + 1, Err: lastErr}
		case <-time.After(wait):
		}
	}

	return &FetchFailure{URL: url, Attempts: d.maxAttempts, Err: lastErr}
}

// fetchOnce performs a single streaming GET into a temporary file and
// renames it over dest on success.
func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	response, err := d.client.Do(request)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status: %s", response.Status)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	tempName := tempFile.Name()

	if _, err = io.CopyBuffer(tempFile, response.Body, make([]byte, copyChunkSize)); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempName)

		return fmt.Errorf("write body: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf("close temporary file: %w", err)
	}

	if err = os.Rename(tempName, dest); err != nil {
		_ = os.Remove(tempName)

		return fmt.Errorf("move into place: %w", err)
	}

	return nil
}

// backoffDelay implements the 1s, 2s, 4s, ... schedule.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}
