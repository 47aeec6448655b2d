package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestParse(t *testing.T) {
	line := `{"level":"warn","service":"usher","component":"devices","device_id":"d1","attempt":2,"error":"timeout","time":"2025-10-08T21:01:05Z","message":"delete failed"}`
	got := Parse(line)

	if got.Level != zerolog.WarnLevel {
		t.Errorf("Level = %v, want warn", got.Level)
	}
	if want := time.Date(2025, 10, 8, 21, 1, 5, 0, time.UTC); !got.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", got.Time, want)
	}
	if got.Component != "devices" || got.Message != "delete failed" || got.Error != "timeout" {
		t.Errorf("Parse() = %+v", got)
	}
	wantFields := []Field{{Key: "attempt", Value: "2"}, {Key: "device_id", Value: "d1"}}
	if !reflect.DeepEqual(got.Fields, wantFields) {
		t.Errorf("Fields = %v, want %v", got.Fields, wantFields)
	}
	if got.Raw != line {
		t.Errorf("Raw not preserved")
	}
}

func TestParse_Unstructured(t *testing.T) {
	for _, line := range []string{"", "panic: boom", "{not json"} {
		got := Parse(line)
		if got.Structured() {
			t.Errorf("Parse(%q).Structured() = true, want false", line)
		}
		if got.Raw != line || got.Level != zerolog.NoLevel {
			t.Errorf("Parse(%q) = %+v", line, got)
		}
	}
}

func TestFilter(t *testing.T) {
	entries := ParseLines([]string{
		`{"level":"debug","component":"paging","message":"fetch"}`,
		`{"level":"info","component":"devices","message":"loaded"}`,
		`goroutine 1 [running]:`,
		`{"level":"error","component":"paging","message":"failed"}`,
	})

	got := Filter(entries, zerolog.InfoLevel, "")
	if len(got) != 3 {
		t.Fatalf("Filter(info) kept %d entries, want 3", len(got))
	}

	got = Filter(entries, zerolog.DebugLevel, "PAGING")
	var messages []string
	for _, e := range got {
		messages = append(messages, e.Message)
	}
	want := []string{"fetch", "", "failed"}
	if !reflect.DeepEqual(messages, want) {
		t.Fatalf("Filter(paging) messages = %q, want %q", messages, want)
	}
}
