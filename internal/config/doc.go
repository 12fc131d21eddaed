// Package config holds the two configuration surfaces of the launcher:
//
//   - Settings: launcher behavior (folders, artifact URLs, game port, MOTD,
//     save interval) loaded from an optional YAML file with defaults applied
//     for anything missing.
//   - Credentials: the persisted JSON file holding the optional ngrok token
//     and Discord webhook. It is written with owner-only permissions and
//     saved immediately after any mutation.
//
// Both follow the same Load/Save/Validate shape.
package config
