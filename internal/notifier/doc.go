// Package notifier posts the discovered tunnel address to a Discord webhook.
// Delivery is fire-and-forget: it runs on its own goroutine, failures are
// logged and swallowed, and server startup never waits for it.
package notifier
