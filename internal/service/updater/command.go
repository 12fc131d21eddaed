package updater

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/dbarrero/terraria-launcher/internal/config"
	"github.com/dbarrero/terraria-launcher/internal/downloader"
	"github.com/dbarrero/terraria-launcher/internal/logger"
	"github.com/dbarrero/terraria-launcher/internal/version"
)

var (
	errUpdateAlreadyRunning = errors.New("an update is already running")
	errNoUpdateFolder       = errors.New("no update folder configured")
	errEmptyManifest        = errors.New("update manifest is empty")
	errNoChecksum           = errors.New("checksum missing from manifest")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// SettingsPath is the optional path to the launcher settings YAML file.
	SettingsPath string
	// UpdateFolder overrides the update folder URL from settings.
	UpdateFolder string
}

// Run checks the published manifest and replaces the running executable when
// a newer release is available. A marker file prevents concurrent updates.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "terraria-updater")

	if IsUpdateRunningNow(ctx) {
		return errUpdateAlreadyRunning
	}

	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return fmt.Errorf("create update marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return fmt.Errorf("close update marker: %w", err)
	}

	defer func() {
		_ = os.Remove(MarkerFilename)
	}()

	folder, err := resolveUpdateFolder(opts)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "terraria-launcher-update-")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	fetcher := downloader.New()

	manifest, err := fetchManifest(ctx, fetcher, folder, workDir)
	if err != nil {
		return err
	}

	if !isNewerVersion(version.Short(), manifest.VersionNumber) {
		logger.InfoKV(ctx, "Already up to date", "version", version.Short())

		return nil
	}

	logger.InfoKV(ctx, "Updating", "from", version.Short(), "to", manifest.VersionNumber)

	return applyUpdate(ctx, fetcher, folder, workDir, manifest)
}

// resolveUpdateFolder picks the update folder from the override or settings.
func resolveUpdateFolder(opts *Options) (string, error) {
	if opts.UpdateFolder != "" {
		return opts.UpdateFolder, nil
	}

	settings, err := config.LoadSettings(opts.SettingsPath)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	if settings.UpdateFolder == "" {
		return "", errNoUpdateFolder
	}

	return settings.UpdateFolder, nil
}

// fetchManifest downloads and parses the release manifest.
func fetchManifest(ctx context.Context, fetcher *downloader.Downloader, folder, workDir string) (*Manifest, error) {
	manifestURL, err := artifactURL(folder, ManifestFilename)
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(workDir, ManifestFilename)
	if err = fetcher.Fetch(ctx, manifestURL, manifestPath); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err = yaml.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if manifest.VersionNumber == "" || manifest.Binary == "" {
		return nil, errEmptyManifest
	}

	return &manifest, nil
}

// applyUpdate downloads the release binary, verifies its checksum, and
// swaps it in over the running executable.
func applyUpdate(ctx context.Context, fetcher *downloader.Downloader, folder, workDir string, manifest *Manifest) error {
	if manifest.Checksum == "" {
		return errNoChecksum
	}

	checksum, err := base64.StdEncoding.DecodeString(manifest.Checksum)
	if err != nil {
		return fmt.Errorf("decode checksum: %w", err)
	}

	binaryURL, err := artifactURL(folder, manifest.Binary)
	if err != nil {
		return err
	}

	binaryPath := filepath.Join(workDir, manifest.Binary)
	if err = fetcher.Fetch(ctx, binaryURL, binaryPath); err != nil {
		return err
	}

	data, err := os.ReadFile(binaryPath)
	if err != nil {
		return fmt.Errorf("read downloaded binary: %w", err)
	}

	target, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate running executable: %w", err)
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	if _, err = os.Stat(target + ".old"); err == nil {
		_ = os.Remove(target + ".old")
	}

	logger.InfoKV(ctx, "Update applied", "version", manifest.VersionNumber)

	return nil
}

// artifactURL joins the update folder URL with a filename.
func artifactURL(folder, filename string) (string, error) {
	parsed, err := url.Parse(folder)
	if err != nil {
		return "", fmt.Errorf("parse update folder: %w", err)
	}

	parsed.Path = path.Join(parsed.Path, filename)

	return parsed.String(), nil
}
