// Package installer wraps the OS-level plumbing the playit tunnel needs:
// apt package installation and an idempotent @reboot crontab registration.
// External commands run behind the Runner interface so tests can observe
// them without touching the system.
package installer
