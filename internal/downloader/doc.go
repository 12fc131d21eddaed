// Package downloader fetches remote artifacts to local paths.
//
// Every fetch is a bounded sequence of attempts with exponential backoff
// between them (1s, 2s, 4s, ...). The body is streamed to disk in small
// chunks and the destination path only ever sees a fully written file.
package downloader
