package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/usher/internal/player"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"fits", "Alien", 10, "Alien"},
		{"trims", "  Alien  ", 10, "Alien"},
		{"ellipsis", "The Empire Strikes Back", 10, "The Emp..."},
		{"short_limit", "Alien", 2, "Al"},
		{"zero", "Alien", 0, ""},
		{"runes", "Amélie Poulain", 6, "Amé..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := truncate(tc.in, tc.limit); got != tc.want {
				t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Fatalf("padRight = %q, want %q", got, "ab   ")
	}
	if got := padRight("abcdefgh", 5); got != "ab..." {
		t.Fatalf("padRight long = %q, want %q", got, "ab...")
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0:00"},
		{59 * time.Second, "0:59"},
		{61*time.Second + 500*time.Millisecond, "1:01"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2:03:04"},
	}
	for _, tc := range cases {
		if got := formatClock(tc.in); got != tc.want {
			t.Fatalf("formatClock(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScrollStart(t *testing.T) {
	if got := scrollStart(3, 5, 10); got != 0 {
		t.Fatalf("short list start = %d, want 0", got)
	}
	if got := scrollStart(2, 100, 10); got != 0 {
		t.Fatalf("near top start = %d, want 0", got)
	}
	if got := scrollStart(50, 100, 10); got != 45 {
		t.Fatalf("middle start = %d, want 45", got)
	}
	if got := scrollStart(99, 100, 10); got != 90 {
		t.Fatalf("bottom start = %d, want 90", got)
	}
}

func TestClampIndex(t *testing.T) {
	if got := clampIndex(5, 0); got != 0 {
		t.Fatalf("clampIndex empty = %d", got)
	}
	if got := clampIndex(-1, 3); got != 0 {
		t.Fatalf("clampIndex negative = %d", got)
	}
	if got := clampIndex(7, 3); got != 2 {
		t.Fatalf("clampIndex past end = %d", got)
	}
}

func TestStepSpeed(t *testing.T) {
	if got := stepSpeed(player.SpeedNormal, 1); got != player.SpeedOneQuarter {
		t.Fatalf("faster = %v, want %v", got, player.SpeedOneQuarter)
	}
	if got := stepSpeed(player.SpeedHalf, -1); got != player.SpeedHalf {
		t.Fatalf("slowest clamps, got %v", got)
	}
	if got := stepSpeed(player.SpeedDouble, 1); got != player.SpeedDouble {
		t.Fatalf("fastest clamps, got %v", got)
	}
	if got := stepSpeed(player.Speed(3), 1); got != player.SpeedNormal {
		t.Fatalf("unknown speed = %v, want normal", got)
	}
}

func TestClassifyConnectionError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "OFFLINE"},
		{errors.New("dial tcp: connect: connection refused"), "OFFLINE"},
		{errors.New("lookup jellyfin: no such host"), "HOST NOT FOUND"},
		{errors.New("context deadline exceeded"), "TIMEOUT"},
		{errors.New("server error 401"), "UNAUTHORIZED"},
		{errors.New("boom"), "ERROR"},
	}
	for _, tc := range cases {
		if got := classifyConnectionError(tc.err); got != tc.want {
			t.Fatalf("classifyConnectionError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestNextLogLevelCycles(t *testing.T) {
	level := zerolog.DebugLevel
	seen := []zerolog.Level{level}
	for range logLevels {
		level = nextLogLevel(level)
		seen = append(seen, level)
	}
	want := []zerolog.Level{zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel, zerolog.DebugLevel}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("cycle = %v, want %v", seen, want)
		}
	}
	if got := nextLogLevel(zerolog.TraceLevel); got != zerolog.DebugLevel {
		t.Fatalf("unknown level = %v, want debug", got)
	}
}
