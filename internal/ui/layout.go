package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width for secondary columns.
	LayoutWideWidth = 130
)

// Log display limits.
const (
	// LogReadLimit is the number of lines read from the end of the log file.
	LogReadLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// TaskRefreshInterval is how often the tasks view reloads in the background.
	TaskRefreshInterval = 5 * time.Second

	// SeekStep is how far the seek keys move playback.
	SeekStep = 10
)
