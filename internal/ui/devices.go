package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/usher/internal/devices"
	"github.com/five82/usher/internal/jellyfin"
)

type deviceState struct {
	selected int
	// pending is the device awaiting a second delete press.
	pending string
	loaded  bool
}

type devicesChangedMsg struct{}

type devicesEventMsg struct{ ev devices.Event }

func (m Model) watchDevices() []tea.Cmd {
	if m.devices == nil {
		return nil
	}
	mgr := m.devices
	return []tea.Cmd{
		waitChange(mgr.Changes(), devicesChangedMsg{}),
		waitEvent(mgr.Events(), func(ev devices.Event) tea.Msg { return devicesEventMsg{ev: ev} }),
	}
}

func (m *Model) loadDevices() tea.Cmd {
	if m.devices == nil {
		return nil
	}
	m.deviceState.pending = ""
	m.devices.Respond(devices.GetDevices{})
	return nil
}

func (m Model) handleDevicesMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.devices == nil {
		return m, nil
	}
	switch msg := msg.(type) {
	case devicesChangedMsg:
		m.deviceState.selected = clampIndex(m.deviceState.selected, len(m.devices.Devices()))
		return m, waitChange(m.devices.Changes(), msg)
	case devicesEventMsg:
		switch ev := msg.ev.(type) {
		case devices.Success:
			m.deviceState.loaded = true
		case devices.Failed:
			m.setStatus(ev.Err.Error(), true)
		}
		return m, waitEvent(m.devices.Events(), func(ev devices.Event) tea.Msg { return devicesEventMsg{ev: ev} })
	}
	return m, nil
}

func (m Model) handleDevicesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.devices == nil {
		return m, nil
	}
	list := m.devices.Devices()
	if sel, moved := m.moveSelection(msg, m.deviceState.selected, len(list)); moved {
		m.deviceState.selected = sel
		m.deviceState.pending = ""
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.loadDevices()
		return m, cmd

	case key.Matches(msg, m.keys.Delete):
		if m.deviceState.selected >= len(list) {
			return m, nil
		}
		d := list[m.deviceState.selected]
		if d.ID == m.devices.SelfID() {
			m.setStatus("cannot delete the device usher runs as", true)
			return m, nil
		}
		if m.deviceState.pending != d.ID {
			m.deviceState.pending = d.ID
			m.setStatus(fmt.Sprintf("Press D again to delete %s", deviceLabel(d)), false)
			return m, nil
		}
		m.deviceState.pending = ""
		m.devices.Respond(devices.DeleteDevices{IDs: []string{d.ID}})
		m.setStatus("Deleting "+deviceLabel(d), false)
	}
	return m, nil
}

func deviceLabel(d jellyfin.DeviceInfo) string {
	if d.Name == "" {
		return d.ID
	}
	return d.Name
}

func (m Model) renderDevices() string {
	height := m.contentHeight()
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	if m.devices == nil {
		return m.renderBox("Devices", "No server configured.", m.width, height, true)
	}

	list := m.devices.Devices()
	title := fmt.Sprintf("Devices · %d", len(list))
	if state := m.devices.State(); !state.Idle() {
		title += " · " + state.String()
	}
	for _, marker := range m.devices.Background() {
		title += " · " + string(marker)
	}

	if len(list) == 0 {
		text := "No devices."
		if !m.deviceState.loaded {
			text = "Loading..."
		}
		return m.renderBox(title, styles.MutedText.Render(text), m.width, height, true)
	}

	innerW := max(m.width-2, 10)
	rows := max(height-2, 1)
	start := scrollStart(m.deviceState.selected, len(list), rows)
	self := m.devices.SelfID()

	var b strings.Builder
	for i := start; i < len(list) && i < start+rows; i++ {
		d := list[i]
		line := formatDeviceRow(d, d.ID == self, innerW)
		switch {
		case i == m.deviceState.selected && d.ID == m.deviceState.pending:
			b.WriteString(styles.DangerText.Width(innerW).Render(line))
		case i == m.deviceState.selected:
			b.WriteString(styles.Selected.Width(innerW).Render(line))
		default:
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}
	return m.renderBox(title, strings.TrimRight(b.String(), "\n"), m.width, height, true)
}

func formatDeviceRow(d jellyfin.DeviceInfo, self bool, width int) string {
	mark := " "
	if self {
		mark = "*"
	}
	seen := "never"
	if d.DateLastActivity != nil {
		seen = humanize.Time(*d.DateLastActivity)
	}
	app := strings.TrimSpace(d.AppName + " " + d.AppVersion)
	nameW := max(width-2-24-14-16, 8)
	return mark + " " + padRight(deviceLabel(d), nameW) + padRight(app, 24) + padRight(d.LastUserName, 14) + padRight(seen, 16)
}
