package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/five82/usher/internal/logtail"
)

// logLevels is the cycle order of the level filter.
var logLevels = []zerolog.Level{zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel}

type logState struct {
	follow   bool
	level    zerolog.Level
	entries  []logtail.Entry
	viewport viewport.Model
}

func newLogState() logState {
	return logState{
		follow:   true,
		level:    zerolog.DebugLevel,
		viewport: viewport.New(0, 0),
	}
}

type logLinesMsg struct{ entries []logtail.Entry }

type logErrorMsg struct{ err error }

// refreshLogs reads the tail of the log file.
func (m Model) refreshLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogReadLimit)
		if err != nil {
			return logErrorMsg{err: err}
		}
		return logLinesMsg{entries: logtail.ParseLines(lines)}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.entries = msg.entries
	m.updateLogViewport()
}

// updateLogViewport sizes the viewport to the panel and re-renders its lines.
func (m *Model) updateLogViewport() {
	vp := &m.logState.viewport
	vp.Width = max(m.width-2, 0)
	vp.Height = max(m.contentHeight()-2, 0)

	visible := logtail.Filter(m.logState.entries, m.logState.level, "")
	lines := make([]string, 0, len(visible))
	for _, e := range visible {
		lines = append(lines, m.formatLogEntry(e, vp.Width))
	}
	vp.SetContent(strings.Join(lines, "\n"))
	if m.logState.follow {
		vp.GotoBottom()
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vp := &m.logState.viewport
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			vp.GotoBottom()
			return m, m.refreshLogs()
		}

	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.level = nextLogLevel(m.logState.level)
		m.updateLogViewport()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.Up):
		m.logState.follow = false
		vp.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		vp.LineDown(1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logState.follow = false
		vp.HalfViewUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		vp.HalfViewDown()
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		vp.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
	}
	return m, nil
}

func nextLogLevel(current zerolog.Level) zerolog.Level {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

func (m Model) levelStyle(level zerolog.Level) lipgloss.Style {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	switch level {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return styles.FaintText
	case zerolog.InfoLevel:
		return styles.InfoText
	case zerolog.WarnLevel:
		return styles.WarningText
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return styles.DangerText
	default:
		return styles.MutedText
	}
}

func (m Model) formatLogEntry(e logtail.Entry, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	if !e.Structured() {
		return styles.MutedText.Render(truncate(e.Raw, width))
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(m.levelStyle(e.Level).Render(padRight(strings.ToUpper(e.Level.String()), 5)))
	b.WriteString(" ")
	if e.Component != "" {
		b.WriteString(styles.AccentText.Render(e.Component))
		b.WriteString(" ")
	}

	var tail strings.Builder
	tail.WriteString(e.Message)
	for _, f := range e.Fields {
		tail.WriteString(" " + f.Key + "=" + f.Value)
	}
	if e.Error != "" {
		tail.WriteString(" error=" + e.Error)
	}
	used := lipgloss.Width(b.String())
	b.WriteString(styles.Text.Render(truncate(tail.String(), max(width-used, 0))))
	return b.String()
}

func (m Model) renderLogs() string {
	height := m.contentHeight()
	title := "Logs · " + m.logState.level.String() + "+"
	if m.logState.follow {
		title += " · following"
	}
	if m.logPath == "" {
		return m.renderBox(title, "No log file configured.", m.width, height, true)
	}
	if len(m.logState.entries) == 0 {
		styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
		return m.renderBox(title, styles.MutedText.Render("No log entries yet."), m.width, height, true)
	}
	return m.renderBox(title, m.logState.viewport.View(), m.width, height, true)
}
