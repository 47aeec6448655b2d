package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one parsed line of usher's JSON log.
type Entry struct {
	Time      time.Time
	Level     zerolog.Level
	Component string
	Message   string
	Error     string
	// Fields holds every other key rendered as text, sorted by key.
	Fields []Field
	// Raw is the original line. Lines that are not JSON keep only Raw.
	Raw string
}

// Field is a key/value pair from a log line.
type Field struct {
	Key   string
	Value string
}

// Structured reports whether the line parsed as a log record.
func (e Entry) Structured() bool {
	return e.Message != "" || !e.Time.IsZero()
}

var reserved = map[string]bool{
	zerolog.TimestampFieldName: true,
	zerolog.LevelFieldName:     true,
	zerolog.MessageFieldName:   true,
	zerolog.ErrorFieldName:     true,
	"component":                true,
	"service":                  true,
}

// Parse turns a log line into an Entry. Lines that are not JSON objects come
// back with only Raw set and a NoLevel level.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Level: zerolog.NoLevel}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return entry
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return entry
	}

	if v, ok := raw[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			entry.Time = ts
		}
	}
	if v, ok := raw[zerolog.LevelFieldName].(string); ok {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			entry.Level = lvl
		}
	}
	entry.Message, _ = raw[zerolog.MessageFieldName].(string)
	entry.Error, _ = raw[zerolog.ErrorFieldName].(string)
	entry.Component, _ = raw["component"].(string)

	for key, value := range raw {
		if reserved[key] {
			continue
		}
		entry.Fields = append(entry.Fields, Field{Key: key, Value: stringify(value)})
	}
	sort.Slice(entry.Fields, func(i, j int) bool { return entry.Fields[i].Key < entry.Fields[j].Key })
	return entry
}

// ParseLines parses every line.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		out = append(out, Parse(line))
	}
	return out
}

// Filter keeps entries at or above min whose component matches when one is
// given. Unstructured lines are kept so continuation output is not lost.
func Filter(entries []Entry, min zerolog.Level, component string) []Entry {
	component = strings.TrimSpace(component)
	out := entries[:0:0]
	for _, e := range entries {
		if !e.Structured() {
			out = append(out, e)
			continue
		}
		if e.Level != zerolog.NoLevel && e.Level < min {
			continue
		}
		if component != "" && !strings.EqualFold(e.Component, component) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
