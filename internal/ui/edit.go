package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/usher/internal/editor"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/metadata"
)

// EditAPI is the item editing half of the server client.
type EditAPI interface {
	editor.ItemAPI
	editor.FiltersAPI
	metadata.API
}

// editState tracks tag edits and metadata refreshes started from the
// library. Saved edits publish on the bus, which refreshes the library.
type editState struct {
	tagging bool
	target  jellyfin.Item
	input   textinput.Model
	tags    *editor.Editor[string]
	refresh *metadata.Refresher
}

func newEditState() editState {
	ti := textinput.New()
	ti.Prompt = "tag: "
	ti.CharLimit = 64
	return editState{input: ti}
}

type tagEventMsg struct {
	ed *editor.Editor[string]
	ev editor.Event
}

type refreshEventMsg struct {
	r  *metadata.Refresher
	ev metadata.Event
}

func waitTagEvent(ed *editor.Editor[string]) tea.Cmd {
	return waitEvent(ed.Events(), func(ev editor.Event) tea.Msg { return tagEventMsg{ed: ed, ev: ev} })
}

func waitRefreshEvent(r *metadata.Refresher) tea.Cmd {
	return waitEvent(r.Events(), func(ev metadata.Event) tea.Msg { return refreshEventMsg{r: r, ev: ev} })
}

func (m Model) beginTagging() (tea.Model, tea.Cmd) {
	item, ok := m.library.selectedItem()
	if !ok || m.editing == nil {
		return m, nil
	}
	m.edit.tagging = true
	m.edit.target = item
	m.edit.input.SetValue("")
	m.edit.input.Focus()
	return m, textinput.Blink
}

func (m Model) handleTagInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.edit.tagging = false
		m.edit.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.edit.tagging = false
		m.edit.input.Blur()
		tag := strings.TrimSpace(m.edit.input.Value())
		if tag == "" {
			return m, nil
		}
		if m.edit.tags != nil {
			m.edit.tags.Close()
		}
		ed := editor.NewTags(m.edit.target, m.editing, m.bus)
		m.edit.tags = ed
		ed.Respond(editor.Add[string]{Elements: []string{tag}})
		m.setStatus(fmt.Sprintf("Tagging %s with %q", m.edit.target.DisplayName(), tag), false)
		return m, waitTagEvent(ed)
	}
	var cmd tea.Cmd
	m.edit.input, cmd = m.edit.input.Update(msg)
	return m, cmd
}

func (m Model) refreshSelectedMetadata() (tea.Model, tea.Cmd) {
	item, ok := m.library.selectedItem()
	if !ok || m.editing == nil {
		return m, nil
	}
	if m.edit.refresh != nil {
		m.edit.refresh.Close()
	}
	r := metadata.New(item, m.editing, m.bus, m.refreshOpts)
	m.edit.refresh = r
	r.Respond(metadata.RefreshMetadata{
		MetadataMode: jellyfin.RefreshFull,
		ImageMode:    jellyfin.RefreshFull,
	})
	return m, waitRefreshEvent(r)
}

func (m Model) handleEditMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tagEventMsg:
		if msg.ed != m.edit.tags {
			return m, nil
		}
		switch ev := msg.ev.(type) {
		case editor.Updated:
			item := msg.ed.Item()
			m.setStatus(fmt.Sprintf("Tags for %s: %s", item.DisplayName(), strings.Join(item.Tags, ", ")), false)
		case editor.Failed:
			m.setStatus(ev.Err.Error(), true)
		}
		return m, waitTagEvent(msg.ed)

	case refreshEventMsg:
		if msg.r != m.edit.refresh {
			return m, nil
		}
		name := msg.r.Item().DisplayName()
		switch ev := msg.ev.(type) {
		case metadata.RefreshTriggered:
			m.setStatus("Refreshing metadata for "+name, false)
		case metadata.RefreshCompleted:
			m.setStatus("Metadata refreshed for "+name, false)
		case metadata.Failed:
			m.setStatus(ev.Err.Error(), true)
		}
		return m, waitRefreshEvent(msg.r)
	}
	return m, nil
}

func (s editState) close() {
	if s.tags != nil {
		s.tags.Close()
	}
	if s.refresh != nil {
		s.refresh.Close()
	}
}
