// Package tasks lists the media server's scheduled tasks and starts or stops
// them. It also carries the server restart and shutdown commands found on
// the same dashboard.
package tasks
