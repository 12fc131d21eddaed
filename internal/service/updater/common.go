package updater

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dbarrero/terraria-launcher/internal/logger"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// ManifestFilename is the update description published next to release binaries.
	ManifestFilename = "terraria-launcher-version.yaml"

	// MarkerFilename marks that an update is running right now to avoid parallel execution.
	MarkerFilename = "terraria-launcher-update-marker.bin"

	// DefaultFileMode is applied to the replaced executable.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction is used to verify downloaded binaries.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// markerLifetime is the period after which a stale update marker is reclaimed.
	markerLifetime = 30 * time.Second
)

var errHashUnavailable = errors.New("hash function unavailable")

// Manifest describes a published launcher release.
type Manifest struct {
	// VersionNumber is the semantic version of the release.
	VersionNumber string `yaml:"version"`
	// Binary is the artifact filename hosted in the update folder.
	Binary string `yaml:"binary"`
	// Checksum is the base64-encoded SHA-512 of the artifact.
	Checksum string `yaml:"checksum"`
}

// GetFileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// IsUpdateRunningNow checks presence of a marker file, reclaiming it when stale.
func IsUpdateRunningNow(ctx context.Context) bool {
	fileInfo, err := os.Stat(MarkerFilename)
	if err != nil {
		return false
	}

	if time.Since(fileInfo.ModTime()) <= markerLifetime {
		return true
	}

	logger.Info(ctx, "The update marker is too old, reclaiming")

	return os.Remove(MarkerFilename) != nil
}

// isNewerVersion reports whether the remote version is strictly newer than
// the local one. Versions are dotted integer strings; malformed segments
// compare as zero, and a missing local version always means update.
func isNewerVersion(local, remote string) bool {
	if local == "" {
		return true
	}

	localParts := strings.Split(local, ".")
	remoteParts := strings.Split(remote, ".")

	for i := 0; i < len(localParts) || i < len(remoteParts); i++ {
		var localPart, remotePart int

		if i < len(localParts) {
			localPart, _ = strconv.Atoi(localParts[i])
		}

		if i < len(remoteParts) {
			remotePart, _ = strconv.Atoi(remoteParts[i])
		}

		if remotePart != localPart {
			return remotePart > localPart
		}
	}

	return false
}
