// Package logger provides a thin wrapper around zap:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName),
//   - level parsing and configuration,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and log through the logger stored in it, so
// every line carries the name of the component that produced it.
package logger
