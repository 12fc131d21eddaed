// Package archive unpacks the zip artifacts the launcher downloads and
// locates files inside the unpacked trees.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// dirPermissions is used for directories created while unpacking.
const dirPermissions os.FileMode = 0o755

var (
	// errUnsafePath is returned for entries that would escape the destination.
	errUnsafePath = errors.New("archive entry path escapes destination")

	// ErrFileNotFound is returned when FindFile locates nothing.
	ErrFileNotFound = errors.New("file not found")
)

// Unzip extracts the archive at src into destDir, creating it if needed.
// Entry paths are validated so a crafted archive cannot write outside destDir.
func Unzip(src, destDir string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	if err = os.MkdirAll(destDir, dirPermissions); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	for _, entry := range reader.File {
		if err = extractEntry(entry, destDir); err != nil {
			return err
		}
	}

	return nil
}

// extractEntry writes one archive entry under destDir.
func extractEntry(entry *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.Clean(entry.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("%q: %w", entry.Name, errUnsafePath)
	}

	if entry.FileInfo().IsDir() {
		if err := os.MkdirAll(target, dirPermissions); err != nil {
			return fmt.Errorf("create directory %s: %w", entry.Name, err)
		}

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
		return fmt.Errorf("create parent for %s: %w", entry.Name, err)
	}

	source, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}

	defer func() {
		_ = source.Close()
	}()

	output, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if err != nil {
		return fmt.Errorf("create %s: %w", entry.Name, err)
	}

	if _, err = io.Copy(output, source); err != nil {
		_ = output.Close()

		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}

	if err = output.Close(); err != nil {
		return fmt.Errorf("close %s: %w", entry.Name, err)
	}

	return nil
}

// FindFile walks root looking for a regular file with the given base name
// and returns its full path. The server binary sits in a nested folder
// whose name changes between releases, so the lookup is recursive.
func FindFile(root, name string) (string, error) {
	var found string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && d.Name() == name {
			found = path

			return fs.SkipAll
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", root, err)
	}

	if found == "" {
		return "", fmt.Errorf("%s under %s: %w", name, root, ErrFileNotFound)
	}

	return found, nil
}
