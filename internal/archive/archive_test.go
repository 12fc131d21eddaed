package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeZip produces a zip file at path with the provided name->contents entries.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	var buffer bytes.Buffer

	writer := zip.NewWriter(&buffer)
	for name, contents := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)

		_, err = entry.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	require.NoError(t, os.WriteFile(path, buffer.Bytes(), 0o644))
}

// TestUnzipAndFindFile extracts a nested archive and locates a file inside it.
func TestUnzipAndFindFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "server.zip")
	writeZip(t, src, map[string]string{
		"1449/Linux/TerrariaServer.bin.x86_64": "binary",
		"1449/Linux/serverconfig.txt":          "port=7777",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Unzip(src, dest))

	found, err := FindFile(dest, "TerrariaServer.bin.x86_64")
	require.NoError(t, err)

	contents, err := os.ReadFile(found)
	require.NoError(t, err)
	require.Equal(t, "binary", string(contents))
}

// TestUnzip_RejectsPathEscape refuses entries that climb out of the destination.
func TestUnzip_RejectsPathEscape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src, map[string]string{
		"../escape.txt": "nope",
	})

	err := Unzip(src, filepath.Join(dir, "out"))
	require.ErrorIs(t, err, errUnsafePath)
}

// TestFindFile_NotFound reports a missing file distinctly.
func TestFindFile_NotFound(t *testing.T) {
	t.Parallel()

	_, err := FindFile(t.TempDir(), "TerrariaServer.bin.x86_64")
	require.ErrorIs(t, err, ErrFileNotFound)
}
