package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/player"
)

// playerState drives a simulated playback clock: the TUI has no media
// engine, so position advances with the UI tick while playing.
type playerState struct {
	mgr *player.Manager
	// carry accumulates sub-second progress between ticks.
	carry float64
}

type playerChangedMsg struct{ mgr *player.Manager }

type playerEventMsg struct {
	mgr *player.Manager
	ev  player.Event
}

func (s playerState) watch() []tea.Cmd {
	mgr := s.mgr
	if mgr == nil {
		return nil
	}
	return []tea.Cmd{
		waitChange(mgr.Changes(), playerChangedMsg{mgr: mgr}),
		waitEvent(mgr.Events(), func(ev player.Event) tea.Msg { return playerEventMsg{mgr: mgr, ev: ev} }),
	}
}

// startPlayback replaces any current playback with item and shows the player.
func (m Model) startPlayback(item jellyfin.Item) (tea.Model, tea.Cmd) {
	if m.playback == nil {
		m.setStatus("playback is not available", true)
		return m, nil
	}
	if m.player.mgr != nil {
		m.player.mgr.Respond(player.Stop{})
		m.player.mgr.Close()
	}
	m.player = playerState{mgr: player.New(item, player.ServerProvider(m.playback, item))}
	m.currentView = ViewPlayer
	m.setStatus("Loading "+item.DisplayName(), false)
	return m, tea.Batch(m.player.watch()...)
}

func (m Model) handlePlayerMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case playerChangedMsg:
		if msg.mgr != m.player.mgr {
			return m, nil
		}
		return m, waitChange(msg.mgr.Changes(), msg)

	case playerEventMsg:
		if msg.mgr != m.player.mgr {
			return m, nil
		}
		mgr := msg.mgr
		switch ev := msg.ev.(type) {
		case player.StartPlayback:
			// No engine to wait on; the stream is ready as soon as it resolves.
			mgr.Respond(player.Play{})
			m.setStatus("Playing "+ev.Item.Item.DisplayName(), false)
		case player.PlaybackStopped:
			m.setStatus("Playback stopped", false)
		case player.Failed:
			m.setStatus(ev.Err.Error(), true)
		}
		return m, waitEvent(mgr.Events(), func(ev player.Event) tea.Msg { return playerEventMsg{mgr: mgr, ev: ev} })
	}
	return m, nil
}

// advancePlayback moves the clock forward by one UI tick at the current speed.
func (m *Model) advancePlayback() {
	mgr := m.player.mgr
	if mgr == nil || !mgr.State().Is(player.PhasePlaying) {
		return
	}
	m.player.carry += m.pollTick.Seconds() * float64(mgr.Speed())
	step := int(m.player.carry)
	if step == 0 {
		return
	}
	m.player.carry -= float64(step)

	pos := mgr.Progress().Seconds + step
	total := int(mgr.Item().RunTime().Seconds())
	if total > 0 && pos >= total {
		mgr.Respond(player.Seek{Seconds: total})
		mgr.Respond(player.Ended{})
		m.setStatus("Finished "+mgr.Item().DisplayName(), false)
		return
	}
	mgr.Respond(player.Seek{Seconds: pos})
}

func (m Model) handlePlayerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mgr := m.player.mgr
	if mgr == nil || mgr.Stopped() {
		return m, nil
	}
	phase := mgr.State().Phase
	if _, resolved := mgr.PlaybackItem(); !resolved && !key.Matches(msg, m.keys.StopPlay) {
		// Transport actions would cancel the stream lookup.
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.PlayPause):
		switch phase {
		case player.PhasePlaying:
			mgr.Respond(player.Pause{})
		case player.PhasePaused:
			mgr.Respond(player.Play{})
		}

	case key.Matches(msg, m.keys.StopPlay):
		mgr.Respond(player.Stop{})

	case key.Matches(msg, m.keys.SeekBack):
		mgr.Respond(player.Seek{Seconds: max(mgr.Progress().Seconds-SeekStep, 0)})

	case key.Matches(msg, m.keys.SeekFwd):
		target := mgr.Progress().Seconds + SeekStep
		if total := int(mgr.Item().RunTime().Seconds()); total > 0 {
			target = min(target, total)
		}
		mgr.Respond(player.Seek{Seconds: target})

	case key.Matches(msg, m.keys.SlowerRate):
		mgr.Respond(player.SetSpeed{Speed: stepSpeed(mgr.Speed(), -1)})

	case key.Matches(msg, m.keys.FasterRate):
		mgr.Respond(player.SetSpeed{Speed: stepSpeed(mgr.Speed(), 1)})
	}
	return m, nil
}

// stepSpeed returns the neighbouring supported speed, clamped at the ends.
func stepSpeed(current player.Speed, delta int) player.Speed {
	i := slices.Index(player.Speeds, current)
	if i < 0 {
		return player.SpeedNormal
	}
	return player.Speeds[clampIndex(i+delta, len(player.Speeds))]
}

func (m Model) renderPlayer() string {
	height := m.contentHeight()
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	mgr := m.player.mgr
	if mgr == nil {
		return m.renderBox("Player", styles.MutedText.Render("Nothing playing. Pick an item in the library and press enter."), m.width, height, true)
	}

	item := mgr.Item()
	state := mgr.State()
	innerW := max(m.width-2, 10)

	phase := string(state.Phase)
	lines := []string{
		styles.StatusStyle(phase).Render(phase) + " " + styles.AccentText.Bold(true).Render(truncate(item.DisplayName(), innerW-len(phase)-3)),
		"",
	}

	prog := mgr.Progress()
	bar := progress.New(
		progress.WithSolidFill(m.theme.Accent),
		progress.WithoutPercentage(),
		progress.WithWidth(max(innerW-24, 10)),
	)
	clock := formatClock(secondsDuration(prog.Seconds)) + " / " + formatClock(item.RunTime())
	lines = append(lines, bar.ViewAs(prog.Fraction)+"  "+styles.Text.Render(clock))
	lines = append(lines, styles.MutedText.Render("Speed ")+styles.Text.Render(mgr.Speed().String()))

	if state.Err != nil {
		lines = append(lines, "", styles.DangerText.Render(state.Err.Error()))
	}

	if pi, ok := mgr.PlaybackItem(); ok {
		src := pi.MediaSource
		detail := strings.TrimSpace(src.Container)
		if src.Bitrate > 0 {
			detail += " · " + humanize.SI(float64(src.Bitrate), "bps")
		}
		if src.Size > 0 {
			detail += " · " + humanize.Bytes(uint64(src.Size))
		}
		lines = append(lines, "",
			styles.MutedText.Render("Source ")+styles.Text.Render(truncate(detail, innerW-7)),
			styles.MutedText.Render("Stream ")+styles.FaintText.Render(truncate(pi.StreamURL, innerW-7)),
		)
	}

	if queue := mgr.Queue(); len(queue) > 1 {
		lines = append(lines, "", styles.MutedText.Render(fmt.Sprintf("Queue (%d)", len(queue))))
		for _, q := range queue {
			lines = append(lines, styles.Text.Render("  "+truncate(q.DisplayName(), innerW-2)))
		}
	}

	return m.renderBox("Player", strings.Join(lines, "\n"), m.width, height, true)
}

func secondsDuration(s int) time.Duration { return time.Duration(s) * time.Second }
