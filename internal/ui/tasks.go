package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/tasks"
)

type taskState struct {
	selected    int
	lastRefresh time.Time
	// confirm holds the server command awaiting a second press.
	confirm tasks.Action
}

type tasksChangedMsg struct{}

type tasksEventMsg struct{ ev tasks.Event }

func (m Model) watchTasks() []tea.Cmd {
	if m.tasks == nil {
		return nil
	}
	mgr := m.tasks
	return []tea.Cmd{
		waitChange(mgr.Changes(), tasksChangedMsg{}),
		waitEvent(mgr.Events(), func(ev tasks.Event) tea.Msg { return tasksEventMsg{ev: ev} }),
	}
}

func (m *Model) loadTasks() tea.Cmd {
	if m.tasks == nil {
		return nil
	}
	m.taskState.lastRefresh = time.Now()
	m.tasks.Respond(tasks.Refresh{})
	return nil
}

// backgroundRefreshTasks reloads the list quietly at TaskRefreshInterval.
func (m *Model) backgroundRefreshTasks() tea.Cmd {
	if m.tasks == nil || time.Since(m.taskState.lastRefresh) < TaskRefreshInterval {
		return nil
	}
	m.taskState.lastRefresh = time.Now()
	m.tasks.Respond(tasks.BackgroundRefresh{})
	return nil
}

// flatTasks returns tasks in display order.
func (m Model) flatTasks() []jellyfin.TaskInfo {
	var out []jellyfin.TaskInfo
	for _, c := range m.tasks.Categories() {
		out = append(out, c.Tasks...)
	}
	return out
}

func (m Model) handleTasksMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.tasks == nil {
		return m, nil
	}
	switch msg := msg.(type) {
	case tasksChangedMsg:
		m.taskState.selected = clampIndex(m.taskState.selected, len(m.tasks.Tasks()))
		return m, waitChange(m.tasks.Changes(), msg)
	case tasksEventMsg:
		switch ev := msg.ev.(type) {
		case tasks.Started:
			m.setStatus("Started "+m.taskName(ev.ID), false)
		case tasks.Stopped:
			m.setStatus("Stopped "+m.taskName(ev.ID), false)
		case tasks.ServerRestarting:
			m.setStatus("Server is restarting", false)
		case tasks.ServerStopping:
			m.setStatus("Server is shutting down", false)
		case tasks.Failed:
			m.setStatus(ev.Err.Error(), true)
		}
		return m, waitEvent(m.tasks.Events(), func(ev tasks.Event) tea.Msg { return tasksEventMsg{ev: ev} })
	}
	return m, nil
}

func (m Model) taskName(id string) string {
	for _, t := range m.tasks.Tasks() {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}

func (m Model) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.tasks == nil {
		return m, nil
	}
	list := m.flatTasks()
	if sel, moved := m.moveSelection(msg, m.taskState.selected, len(list)); moved {
		m.taskState.selected = sel
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.loadTasks()
		return m, cmd

	case key.Matches(msg, m.keys.StartTask):
		if m.taskState.selected < len(list) {
			t := list[m.taskState.selected]
			if t.Running() {
				m.setStatus(t.Name+" is already running", false)
				return m, nil
			}
			m.tasks.Respond(tasks.Start{ID: t.ID})
		}

	case key.Matches(msg, m.keys.StopTask):
		if m.taskState.selected < len(list) {
			t := list[m.taskState.selected]
			if !t.Running() {
				m.setStatus(t.Name+" is not running", false)
				return m, nil
			}
			m.tasks.Respond(tasks.Stop{ID: t.ID})
		}

	case key.Matches(msg, m.keys.RestartServer):
		return m.confirmServer(tasks.RestartServer{}, "restart")

	case key.Matches(msg, m.keys.ShutdownServer):
		return m.confirmServer(tasks.ShutdownServer{}, "shut down")
	}
	return m, nil
}

func (m Model) confirmServer(action tasks.Action, verb string) (tea.Model, tea.Cmd) {
	if m.taskState.confirm != action {
		m.taskState.confirm = action
		m.setStatus(fmt.Sprintf("Press again to %s the server", verb), false)
		return m, nil
	}
	m.taskState.confirm = nil
	m.tasks.Respond(action)
	return m, nil
}

func (m Model) renderTasks() string {
	height := m.contentHeight()
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	if m.tasks == nil {
		return m.renderBox("Tasks", "No server configured.", m.width, height, true)
	}

	categories := m.tasks.Categories()
	running := 0
	for _, t := range m.tasks.Tasks() {
		if t.Running() {
			running++
		}
	}
	title := fmt.Sprintf("Tasks · %d running", running)
	if m.tasks.HasMarker(tasks.MarkerRefreshing) {
		title += " · refreshing"
	}
	if state := m.tasks.State(); state.Err != nil {
		title += " · " + state.String()
	}

	if len(categories) == 0 {
		return m.renderBox(title, styles.MutedText.Render("Loading..."), m.width, height, true)
	}

	innerW := max(m.width-2, 10)
	bar := progress.New(progress.WithSolidFill(m.theme.Accent), progress.WithoutPercentage(), progress.WithWidth(12))

	var lines []string
	selectedLine := 0
	idx := 0
	for _, c := range categories {
		name := c.Name
		if name == "" {
			name = "Other"
		}
		lines = append(lines, styles.AccentText.Bold(true).Render(name))
		for _, t := range c.Tasks {
			line := m.formatTaskRow(t, bar, innerW)
			if idx == m.taskState.selected {
				selectedLine = len(lines)
				line = styles.Selected.Width(innerW).Render(line)
			} else {
				line = styles.Text.Render(line)
			}
			lines = append(lines, line)
			idx++
		}
	}

	rows := max(height-2, 1)
	start := scrollStart(selectedLine, len(lines), rows)
	end := min(start+rows, len(lines))
	return m.renderBox(title, strings.Join(lines[start:end], "\n"), m.width, height, true)
}

func (m Model) formatTaskRow(t jellyfin.TaskInfo, bar progress.Model, width int) string {
	status := strings.ToLower(t.State)
	badge := m.theme.Styles().StatusStyle(status).Render(padRight(status, 10))

	detail := ""
	switch {
	case t.Running() && t.CurrentProgressPercentage != nil:
		pct := *t.CurrentProgressPercentage
		detail = bar.ViewAs(pct/100) + fmt.Sprintf(" %3.0f%%", pct)
	case t.LastExecutionResult != nil:
		r := t.LastExecutionResult
		detail = r.Status
		if !r.EndTimeUtc.IsZero() {
			detail += " " + humanize.Time(r.EndTimeUtc)
		}
	}
	nameW := max(width-12-24-2, 8)
	return " " + badge + " " + padRight(t.Name, nameW) + truncate(detail, 24)
}
