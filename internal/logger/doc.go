// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Info, ErrorKV, etc.).
//
// The controller, the password session and both node services take a context
// and extract the logger from it, so every line carries the node name.
package logger
