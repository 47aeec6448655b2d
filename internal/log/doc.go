// Package log provides structured logging for usher on top of zerolog.
//
// A single base logger is configured at startup by the app package. The
// TUI owns the terminal, so interactive sessions log as JSON to a file;
// CLI subcommands log human-readable lines to stderr. Packages derive
// component loggers with WithComponent and attach canonical field names
// from fields.go so log lines stay greppable across components.
package log
