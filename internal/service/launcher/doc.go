// Package launcher is the orchestrator: it sequences setup (directories,
// worlds symlink, server installation), tunnel selection and bring-up,
// notification, and the game server run, with supervised teardown on every
// exit path.
package launcher
