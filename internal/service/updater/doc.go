// Package updater implements self-update for the launcher binary: it
// compares the local build version against a published YAML manifest,
// downloads the newer release, verifies its checksum, and swaps it in
// over the running executable.
package updater
