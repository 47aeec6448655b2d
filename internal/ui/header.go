package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/dustin/go-humanize"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("usher", styles.Logo)}

	conn := m.connectionLabel()
	parts = append(parts, styles.StatusStyle(strings.ToLower(conn)).Render(conn))

	if m.width >= LayoutCompactWidth && m.serverURL != "" {
		parts = append(parts, bg.Render(truncate(m.serverURL, 40), styles.MutedText))
	}

	if m.snapshot.HasSessions {
		playing := len(m.snapshot.NowPlaying())
		summary := fmt.Sprintf("%d sessions", len(m.snapshot.Sessions))
		if playing > 0 {
			summary += fmt.Sprintf(" · %d playing", playing)
		}
		parts = append(parts, bg.Render(summary, styles.Text))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, bg.Spaces(2)))
}

// connectionLabel summarizes reachability for the header badge.
func (m Model) connectionLabel() string {
	switch {
	case m.prefs.OfflineMode:
		return "OFFLINE MODE"
	case m.snapshot.IsOffline():
		return classifyConnectionError(m.snapshot.LastError)
	case !m.snapshot.HasSessions:
		return "CONNECTING"
	default:
		return "ONLINE"
	}
}

func (m Model) formatTimestamp() string {
	if m.snapshot.LastUpdated.IsZero() {
		return ""
	}
	if time.Since(m.snapshot.LastUpdated) < 2*time.Second {
		return "updated just now"
	}
	return "updated " + humanize.Time(m.snapshot.LastUpdated)
}

func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case strings.Contains(msg, "401"), strings.Contains(msg, "Unauthorized"):
		return "UNAUTHORIZED"
	default:
		return "ERROR"
	}
}

type hint struct {
	binding key.Binding
	label   string
}

// renderCommandBar renders the command hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	k := m.keys

	var hints []hint
	switch m.currentView {
	case ViewSessions:
		hints = []hint{{k.Refresh, "Refresh"}, {k.Play, "Pick up"}, {k.Up, "Navigate"}}
	case ViewDevices:
		hints = []hint{{k.Refresh, "Refresh"}, {k.Delete, "Delete"}, {k.Up, "Navigate"}}
	case ViewTasks:
		hints = []hint{{k.Refresh, "Refresh"}, {k.StartTask, "Start"}, {k.StopTask, "Stop"}, {k.Up, "Navigate"}}
	case ViewPlayer:
		hints = []hint{{k.PlayPause, "Play/Pause"}, {k.StopPlay, "Stop"}, {k.SeekBack, "-10s"}, {k.SeekFwd, "+10s"}, {k.SlowerRate, "Slower"}, {k.FasterRate, "Faster"}}
	case ViewLogs:
		follow := "Pause"
		if !m.logState.follow {
			follow = "Follow"
		}
		hints = []hint{{k.ToggleFollow, follow}, {k.CycleLevel, m.logState.level.String()}}
	default:
		hints = []hint{
			{k.CycleCollection, m.library.kind.String()},
			{k.Search, "Search"},
			{k.Refresh, "Refresh"},
			{k.NextPage, "More"},
			{k.RandomItem, "Random"},
			{k.TogglePlayed, "Watched"},
			{k.AddTag, "Tag"},
			{k.Play, "Play"},
		}
	}
	hints = append(hints, hint{k.Tab, m.stepView(1).String()}, hint{k.Help, "More"})

	colon := bg.Sep(":")
	segments := make([]string, 0, len(hints)+1)
	for _, h := range hints {
		segments = append(segments,
			bg.Render(h.binding.Help().Key, styles.AccentText)+colon+bg.Render(h.label, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderStatusLine renders the last status message below the panel.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	if m.status == "" {
		return styles.FaintText.Render(m.currentView.String())
	}
	if m.statusErr {
		return styles.DangerText.Render(truncate(m.status, m.width))
	}
	return styles.InfoText.Render(truncate(m.status, m.width))
}
