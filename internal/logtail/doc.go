// Package logtail reads and parses the tail of usher's own log file.
//
// # Overview
//
// The TUI owns the terminal, so usher logs JSON records to a file and shows
// the most recent ones in its log view. This package does the reading and
// parsing; rendering lives in package ui.
//
// # Reading Log Files
//
// Read extracts the last maxLines of a file with a ring buffer of that size:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines, return the first 'count' entries
//	4. Otherwise return the buffer starting at the current index
//
// One pass, O(maxLines) memory. A non-positive maxLines reads everything and
// a missing file is simply empty.
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//
// # Parsing
//
// Parse understands the zerolog JSON layout written by package log: time,
// level, message, error and component are lifted into Entry fields and
// every other key lands in Fields, sorted by key. Lines that are not JSON
// (a panic trace, for instance) come back unstructured with only Raw set.
//
// Filter narrows entries by minimum level and component. Unstructured lines
// always survive filtering so multi-line output stays readable.
package logtail
