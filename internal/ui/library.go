package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/library"
	"github.com/five82/usher/internal/paging"
)

// collection is the listing the library view shows.
type collection int

const (
	collectionItems collection = iota
	collectionNextUp
	collectionResume
	collectionSearch
	collectionSeasons
	collectionEpisodes
)

func (c collection) String() string {
	switch c {
	case collectionNextUp:
		return "Next up"
	case collectionResume:
		return "Resume"
	case collectionSearch:
		return "Search"
	case collectionSeasons:
		return "Seasons"
	case collectionEpisodes:
		return "Episodes"
	default:
		return "Items"
	}
}

// browseTypes are the item kinds the plain listing shows.
var browseTypes = []string{"Movie", "Series"}

type libraryState struct {
	kind      collection
	lib       *library.Library
	selected  int
	query     string
	searching bool
	input     textinput.Model
	random    *jellyfin.Item
	// parents is the series and season being browsed, outermost first.
	parents   []jellyfin.Item
	// home is the collection browsing started from.
	home      collection
	homeQuery string
}

func newLibraryState() libraryState {
	ti := textinput.New()
	ti.Placeholder = "Search library..."
	ti.CharLimit = 100
	return libraryState{kind: collectionItems, input: ti}
}

func (s libraryState) watch() []tea.Cmd {
	lib := s.lib
	if lib == nil {
		return nil
	}
	return []tea.Cmd{
		waitChange(lib.Changes(), libraryChangedMsg{lib: lib}),
		waitEvent(lib.Events(), func(ev paging.Event) tea.Msg { return libraryEventMsg{lib: lib, ev: ev} }),
	}
}

func (s libraryState) contains(id string) bool {
	if s.lib == nil {
		return false
	}
	for _, item := range s.lib.Items() {
		if item.ID == id {
			return true
		}
	}
	return false
}

func (s libraryState) selectedItem() (jellyfin.Item, bool) {
	if s.lib == nil {
		return jellyfin.Item{}, false
	}
	items := s.lib.Items()
	if s.selected < 0 || s.selected >= len(items) {
		return jellyfin.Item{}, false
	}
	return items[s.selected], true
}

type libraryChangedMsg struct{ lib *library.Library }

type libraryEventMsg struct {
	lib *library.Library
	ev  paging.Event
}

type playedMsg struct {
	name   string
	played bool
	err    error
}

// openCollection replaces the current library with a fresh one of kind and
// starts loading its first page.
func (m *Model) openCollection(kind collection, query string) tea.Cmd {
	if m.catalog == nil {
		return nil
	}
	if m.library.lib != nil {
		m.library.lib.Close()
	}
	var lib *library.Library
	parent, nested := m.library.parent()
	switch kind {
	case collectionSeasons, collectionEpisodes:
		if !nested {
			kind = collectionItems
			lib = m.catalog.Items(library.Params{ItemTypes: browseTypes})
		} else if kind == collectionSeasons {
			lib = m.catalog.Seasons(parent.ID)
		} else {
			lib = m.catalog.Episodes(parent.ID)
		}
	case collectionNextUp:
		lib = m.catalog.NextUp()
	case collectionResume:
		lib = m.catalog.Resume()
	case collectionSearch:
		lib = m.catalog.Search(query)
	default:
		lib = m.catalog.Items(library.Params{ItemTypes: browseTypes})
	}
	if kind != collectionSeasons && kind != collectionEpisodes {
		m.library.parents = nil
	}
	m.library.kind = kind
	m.library.query = query
	m.library.lib = lib
	m.library.selected = 0
	m.library.random = nil
	lib.Respond(paging.Refresh{})
	return tea.Batch(m.library.watch()...)
}

func (s libraryState) parent() (jellyfin.Item, bool) {
	if len(s.parents) == 0 {
		return jellyfin.Item{}, false
	}
	return s.parents[len(s.parents)-1], true
}

// openChildren descends into the seasons of a series or the episodes of a
// season.
func (m *Model) openChildren(item jellyfin.Item) tea.Cmd {
	if len(m.library.parents) == 0 {
		m.library.home = m.library.kind
		m.library.homeQuery = m.library.query
	}
	kind := collectionSeasons
	if item.Type == "Season" {
		kind = collectionEpisodes
	}
	m.library.parents = append(slices.Clone(m.library.parents), item)
	return m.openCollection(kind, "")
}

// openParent goes back up one level, ending at the collection browsing
// started from.
func (m *Model) openParent() tea.Cmd {
	n := len(m.library.parents)
	if n <= 1 {
		m.library.parents = nil
		return m.openCollection(m.library.home, m.library.homeQuery)
	}
	m.library.parents = m.library.parents[:n-1]
	kind := collectionSeasons
	if m.library.parents[n-2].Type == "Season" {
		kind = collectionEpisodes
	}
	return m.openCollection(kind, "")
}

func (m Model) handleLibraryMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case libraryChangedMsg:
		if msg.lib != m.library.lib {
			return m, nil
		}
		m.library.selected = clampIndex(m.library.selected, msg.lib.Len())
		return m, waitChange(msg.lib.Changes(), msg)

	case libraryEventMsg:
		if msg.lib != m.library.lib {
			return m, nil
		}
		lib := msg.lib
		next := waitEvent(lib.Events(), func(ev paging.Event) tea.Msg { return libraryEventMsg{lib: lib, ev: ev} })
		switch ev := msg.ev.(type) {
		case paging.GotRandomItem[jellyfin.Item]:
			item := ev.Item
			m.library.random = &item
			m.setStatus(fmt.Sprintf("Random pick: %s (o to play)", item.DisplayName()), false)
		case paging.Failed:
			m.setStatus(ev.Err.Error(), true)
		}
		return m, next

	case playedMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else if msg.played {
			m.setStatus("Marked watched: "+msg.name, false)
		} else {
			m.setStatus("Marked unwatched: "+msg.name, false)
		}
	}
	return m, nil
}

func (m Model) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lib := m.library.lib
	if lib == nil {
		return m, nil
	}

	if sel, moved := m.moveSelection(msg, m.library.selected, lib.Len()); moved {
		m.library.selected = sel
		// Reaching the last row pulls the next page.
		if sel == lib.Len()-1 && lib.HasNextPage() {
			lib.Respond(paging.NextPage{})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.CycleCollection):
		next := collectionItems
		switch m.library.kind {
		case collectionItems:
			next = collectionNextUp
		case collectionNextUp:
			next = collectionResume
		}
		cmd := m.openCollection(next, "")
		return m, cmd

	case key.Matches(msg, m.keys.Search):
		m.library.searching = true
		m.library.input.SetValue(m.library.query)
		m.library.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Refresh):
		lib.Respond(paging.Refresh{})
		m.library.selected = 0

	case key.Matches(msg, m.keys.NextPage):
		lib.Respond(paging.NextPage{})

	case key.Matches(msg, m.keys.RandomItem):
		lib.Respond(paging.RandomItem{})

	case key.Matches(msg, m.keys.TogglePlayed):
		item, ok := m.library.selectedItem()
		if !ok {
			return m, nil
		}
		return m, m.markPlayedCmd(item, !item.Played())

	case key.Matches(msg, m.keys.AddTag):
		return m.beginTagging()

	case key.Matches(msg, m.keys.RefreshMetadata):
		return m.refreshSelectedMetadata()

	case key.Matches(msg, m.keys.Play):
		item, ok := m.library.selectedItem()
		if !ok {
			return m, nil
		}
		if item.Type == "Series" || item.Type == "Season" {
			cmd := m.openChildren(item)
			return m, cmd
		}
		return m.startPlayback(item)

	case key.Matches(msg, m.keys.PlayRandom):
		if m.library.random == nil {
			return m, nil
		}
		return m.startPlayback(*m.library.random)
	}
	return m, nil
}

func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.library.searching = false
		m.library.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.library.searching = false
		m.library.input.Blur()
		query := strings.TrimSpace(m.library.input.Value())
		if query == "" {
			cmd := m.openCollection(collectionItems, "")
			return m, cmd
		}
		cmd := m.openCollection(collectionSearch, query)
		return m, cmd
	}
	var cmd tea.Cmd
	m.library.input, cmd = m.library.input.Update(msg)
	return m, cmd
}

func (m Model) markPlayedCmd(item jellyfin.Item, played bool) tea.Cmd {
	catalog, lib, ctx := m.catalog, m.library.lib, m.ctx
	return func() tea.Msg {
		err := catalog.MarkPlayed(ctx, lib, item.ID, played)
		return playedMsg{name: item.DisplayName(), played: played, err: err}
	}
}

// renderLibrary renders the current collection as a table.
func (m Model) renderLibrary() string {
	height := m.contentHeight()
	title := m.library.kind.String()
	switch m.library.kind {
	case collectionSearch:
		title = fmt.Sprintf("Search: %s", m.library.query)
	case collectionSeasons, collectionEpisodes:
		if parent, ok := m.library.parent(); ok {
			title = fmt.Sprintf("%s: %s", title, parent.DisplayName())
		}
	}

	lib := m.library.lib
	if lib == nil {
		return m.renderBox(title, "No server configured.", m.width, height, true)
	}

	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	state := lib.State()
	title = fmt.Sprintf("%s · %d items", title, lib.Len())
	if !state.Idle() {
		title += " · " + state.String()
	}

	var b strings.Builder
	if m.library.searching {
		b.WriteString(m.library.input.View())
		b.WriteString("\n")
	}
	if m.edit.tagging {
		b.WriteString(m.edit.input.View())
		b.WriteString("\n")
	}

	items := lib.Items()
	rows := max(height-2-boolInt(m.library.searching)-boolInt(m.edit.tagging)-boolInt(m.library.random != nil), 1)
	start := scrollStart(m.library.selected, len(items), rows)
	innerW := max(m.width-2, 10)

	if len(items) == 0 {
		switch {
		case state.Err != nil:
			b.WriteString(styles.DangerText.Render(state.Err.Error()))
		case state.Idle():
			b.WriteString(styles.MutedText.Render("Nothing here yet."))
		default:
			b.WriteString(styles.MutedText.Render("Loading..."))
		}
	}

	for i := start; i < len(items) && i < start+rows; i++ {
		line := m.formatItemRow(items[i], innerW)
		if i == m.library.selected {
			b.WriteString(styles.Selected.Width(innerW).Render(line))
		} else {
			b.WriteString(styles.Text.Render(line))
		}
		b.WriteString("\n")
	}

	if r := m.library.random; r != nil {
		b.WriteString(styles.WarningText.Render("Random pick: " + r.DisplayName()))
	}

	return m.renderBox(title, strings.TrimRight(b.String(), "\n"), m.width, height, true)
}

func (m Model) formatItemRow(item jellyfin.Item, width int) string {
	watched := " "
	if item.Played() {
		watched = "✓"
	}
	runtime := ""
	if d := item.RunTime(); d > 0 {
		runtime = d.Truncate(time.Minute).String()
		runtime = strings.TrimSuffix(runtime, "0s")
	}
	added := ""
	if item.DateCreated != nil && m.width >= LayoutWideWidth {
		added = humanize.Time(*item.DateCreated)
	}

	nameW := width - 2 - 10 - 10 - 16
	if m.width < LayoutWideWidth {
		nameW = width - 2 - 10 - 10
	}
	row := watched + " " + padRight(item.DisplayName(), max(nameW, 10)) + " " +
		padRight(item.Type, 9) + " " + padRight(runtime, 9)
	if added != "" {
		row += " " + padRight(added, 15)
	}
	return row
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scrollStart returns the first visible row keeping selected in view.
func scrollStart(selected, total, rows int) int {
	if total <= rows || selected < rows/2 {
		return 0
	}
	return min(selected-rows/2, total-rows)
}
