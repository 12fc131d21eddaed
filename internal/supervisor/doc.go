// Package supervisor tracks the subprocesses the launcher spawns (tunnel
// client, game server) and guarantees they are all terminated exactly once
// when the run ends, however it ends.
//
// It also hosts the detached world-save monitor that periodically signals
// the game server to persist its world.
package supervisor
