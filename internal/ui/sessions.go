package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/usher/internal/jellyfin"
)

func (m Model) handleSessionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.snapshot.Sessions
	if sel, moved := m.moveSelection(msg, m.sessionsSel, len(sessions)); moved {
		m.sessionsSel = sel
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Refresh):
		if m.store != nil {
			return m, fetchSnapshotCmd(m.store)
		}
	case key.Matches(msg, m.keys.Play):
		// Pick up what the selected session is watching.
		if m.sessionsSel < len(sessions) {
			if item := sessions[m.sessionsSel].NowPlayingItem; item != nil {
				return m.startPlayback(*item)
			}
		}
	}
	return m, nil
}

// renderSessions shows the active sessions with a detail pane on wide terminals.
func (m Model) renderSessions() string {
	height := m.contentHeight()
	sessions := m.snapshot.Sessions
	title := fmt.Sprintf("Sessions · %d active · %d playing", len(sessions), len(m.snapshot.NowPlaying()))

	if m.width < LayoutCompactWidth || len(sessions) == 0 {
		return m.renderBox(title, m.sessionList(m.width-2, height-2), m.width, height, true)
	}

	listW := m.width * 55 / 100
	detailW := m.width - listW
	list := m.renderBox(title, m.sessionList(listW-2, height-2), listW, height, true)
	detail := m.renderBox("Detail", m.sessionDetail(sessions[m.sessionsSel], detailW-2), detailW, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m Model) sessionList(width, rows int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	sessions := m.snapshot.Sessions
	if len(sessions) == 0 {
		switch {
		case m.snapshot.LastError != nil:
			return styles.DangerText.Render(m.snapshot.LastError.Error())
		case !m.snapshot.HasSessions:
			return styles.MutedText.Render("Waiting for the first poll...")
		default:
			return styles.MutedText.Render("No active sessions.")
		}
	}

	var b strings.Builder
	rows = max(rows, 1)
	start := scrollStart(m.sessionsSel, len(sessions), rows)
	for i := start; i < len(sessions) && i < start+rows; i++ {
		line := formatSessionRow(sessions[i], width)
		if i == m.sessionsSel {
			b.WriteString(styles.Selected.Width(width).Render(line))
		} else {
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSessionRow(s jellyfin.SessionInfo, width int) string {
	state := "idle"
	if s.NowPlayingItem != nil {
		state = "playing"
		if s.PlayState != nil && s.PlayState.IsPaused {
			state = "paused"
		}
	}
	who := s.UserName
	if who == "" {
		who = "-"
	}
	nameW := max(width-8-14-2, 8)
	return padRight(state, 8) + padRight(who, 14) + padRight(s.Client+" · "+s.DeviceName, nameW)
}

func (m Model) sessionDetail(s jellyfin.SessionInfo, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	row := func(label, value string) string {
		return styles.MutedText.Render(padRight(label, 10)) + styles.Text.Render(truncate(value, max(width-10, 1)))
	}
	lines := []string{
		row("User", s.UserName),
		row("Client", strings.TrimSpace(s.Client+" "+s.ApplicationVersion)),
		row("Device", s.DeviceName),
		row("Address", s.RemoteEndPoint),
	}
	if !s.LastActivityDate.IsZero() {
		lines = append(lines, row("Active", humanize.Time(s.LastActivityDate)))
	}
	if item := s.NowPlayingItem; item != nil {
		lines = append(lines, "", styles.AccentText.Render(truncate(item.DisplayName(), width)))
		if s.PlayState != nil {
			pos := time.Duration(s.PlayState.PositionTicks/jellyfin.TicksPerSecond) * time.Second
			lines = append(lines, row("Position", formatClock(pos)+" / "+formatClock(item.RunTime())))
			if s.PlayState.PlayMethod != "" {
				lines = append(lines, row("Method", s.PlayState.PlayMethod))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// formatClock renders d as h:mm:ss or m:ss.
func formatClock(d time.Duration) string {
	d = max(d, 0).Truncate(time.Second)
	h := int(d / time.Hour)
	mins := int(d%time.Hour) / int(time.Minute)
	secs := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}
