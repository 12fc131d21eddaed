// Package tunnel exposes the local game port at a publicly routable address
// through one of two interchangeable providers.
//
// Ngrok is the streaming variant: its client prints the assigned address to
// stdout, and bring-up scans for it under a hard deadline. Playit is the
// background variant: its client daemonizes with no discoverable address at
// launch, so bring-up only verifies the daemon is alive. The two share
// nothing but the Provider contract.
package tunnel
