// Package ui provides the Bubble Tea TUI for usher.
package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/usher/internal/devices"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/library"
	"github.com/five82/usher/internal/log"
	"github.com/five82/usher/internal/metadata"
	"github.com/five82/usher/internal/notify"
	"github.com/five82/usher/internal/paging"
	"github.com/five82/usher/internal/player"
	"github.com/five82/usher/internal/prefs"
	"github.com/five82/usher/internal/state"
	"github.com/five82/usher/internal/tasks"
)

// View represents the current active view.
type View int

const (
	ViewLibrary View = iota
	ViewSessions
	ViewDevices
	ViewTasks
	ViewPlayer
	ViewLogs
)

var viewOrder = []View{ViewLibrary, ViewSessions, ViewDevices, ViewTasks, ViewPlayer, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewSessions:
		return "Sessions"
	case ViewDevices:
		return "Devices"
	case ViewTasks:
		return "Tasks"
	case ViewPlayer:
		return "Player"
	case ViewLogs:
		return "Logs"
	default:
		return "Library"
	}
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Catalog   *library.Catalog
	Devices   *devices.Manager
	Tasks     *tasks.Manager
	Playback  player.PlaybackAPI
	Editing   EditAPI
	Bus       *notify.Bus
	ServerURL string
	PollTick  time.Duration
	Prefs     prefs.Prefs
	PrefsPath string
	LogPath   string

	// Refresh tunes metadata refresh polling.
	Refresh metadata.Options
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	store       *state.Store
	catalog     *library.Catalog
	devices     *devices.Manager
	tasks       *tasks.Manager
	playback    player.PlaybackAPI
	editing     EditAPI
	bus         notify.Publisher
	serverURL   string
	prefs       prefs.Prefs
	prefsPath   string
	logPath     string
	pollTick    time.Duration
	refreshOpts metadata.Options
	keys        keyMap
	subs        []*notify.Subscription

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Status line
	status    string
	statusErr bool

	library     libraryState
	sessionsSel int
	deviceState deviceState
	taskState   taskState
	player      playerState
	logState    logState
	edit        editState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Default()
	}

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		catalog:     opts.Catalog,
		devices:     opts.Devices,
		tasks:       opts.Tasks,
		playback:    opts.Playback,
		editing:     opts.Editing,
		refreshOpts: opts.Refresh,
		serverURL:   opts.ServerURL,
		prefs:       p,
		prefsPath:   opts.PrefsPath,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(p.Theme),
		currentView: ViewLibrary,
		library:     newLibraryState(),
		logState:    newLogState(),
		edit:        newEditState(),
	}
	if opts.Bus != nil {
		m.bus = opts.Bus
		for _, topic := range []notify.Topic{
			notify.TopicDisplayPreferencesDidChange,
			notify.TopicOfflineModeDidChange,
			notify.TopicItemMetadataDidChange,
		} {
			m.subs = append(m.subs, opts.Bus.Subscribe(topic))
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	for _, sub := range m.subs {
		cmds = append(cmds, waitBus(sub))
	}
	cmds = append(cmds, m.library.watch()...)
	cmds = append(cmds, m.watchDevices()...)
	cmds = append(cmds, m.watchTasks()...)
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.sessionsSel = clampIndex(m.sessionsSel, len(m.snapshot.Sessions))
		return m, nil

	case busMsg:
		return m.handleBus(msg)

	case statusMsg:
		m.setStatus(msg.text, msg.err)
		return m, nil

	case libraryChangedMsg, libraryEventMsg, playedMsg:
		return m.handleLibraryMsg(msg)

	case devicesChangedMsg, devicesEventMsg:
		return m.handleDevicesMsg(msg)

	case tasksChangedMsg, tasksEventMsg:
		return m.handleTasksMsg(msg)

	case playerChangedMsg, playerEventMsg:
		return m.handlePlayerMsg(msg)

	case tagEventMsg, refreshEventMsg:
		return m.handleEditMsg(msg)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case logErrorMsg:
		m.setStatus("log: "+msg.err.Error(), true)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// contentHeight is the height left for the active view's panel.
func (m Model) contentHeight() int {
	return max(m.height-3, 3) // header, command bar, status line
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSessions:
		return m.renderSessions()
	case ViewDevices:
		return m.renderDevices()
	case ViewTasks:
		return m.renderTasks()
	case ViewPlayer:
		return m.renderPlayer()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderLibrary()
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	// Text input owns the keyboard while searching.
	if m.library.searching {
		return m.handleSearchInput(msg)
	}
	if m.edit.tagging {
		return m.handleTagInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		next := m.prefs
		next.Theme = NextTheme(m.theme.Name)
		m.theme = GetTheme(next.Theme)
		m.prefs = next
		return m, savePrefsCmd(m.prefsPath, next)

	case key.Matches(msg, m.keys.ToggleOffline):
		next := m.prefs
		next.OfflineMode = !next.OfflineMode
		m.prefs = next
		return m, savePrefsCmd(m.prefsPath, next)

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.stepView(1))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.stepView(-1))

	case key.Matches(msg, m.keys.Escape):
		if m.currentView == ViewLibrary && len(m.library.parents) > 0 {
			cmd := m.openParent()
			return m, cmd
		}
		return m.switchView(ViewLibrary)

	case key.Matches(msg, m.keys.ViewLibrary):
		return m.switchView(ViewLibrary)
	case key.Matches(msg, m.keys.ViewSessions):
		return m.switchView(ViewSessions)
	case key.Matches(msg, m.keys.ViewDevices):
		return m.switchView(ViewDevices)
	case key.Matches(msg, m.keys.ViewTasks):
		return m.switchView(ViewTasks)
	case key.Matches(msg, m.keys.ViewPlayer):
		return m.switchView(ViewPlayer)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.currentView {
	case ViewSessions:
		return m.handleSessionsKey(msg)
	case ViewDevices:
		return m.handleDevicesKey(msg)
	case ViewTasks:
		return m.handleTasksKey(msg)
	case ViewPlayer:
		return m.handlePlayerKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleLibraryKey(msg)
	}
}

func (m Model) stepView(delta int) View {
	for i, v := range viewOrder {
		if v == m.currentView {
			return viewOrder[(i+delta+len(viewOrder))%len(viewOrder)]
		}
	}
	return ViewLibrary
}

// switchView activates v and loads whatever it shows for the first time.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	switch v {
	case ViewLibrary:
		if m.library.lib == nil {
			cmd := m.openCollection(m.library.kind, "")
			return m, cmd
		}
	case ViewDevices:
		cmd := m.loadDevices()
		return m, cmd
	case ViewTasks:
		cmd := m.loadTasks()
		return m, cmd
	case ViewLogs:
		return m, m.refreshLogs()
	}
	return m, nil
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	switch m.currentView {
	case ViewLogs:
		if m.logState.follow {
			cmds = append(cmds, m.refreshLogs())
		}
	case ViewTasks:
		cmds = append(cmds, m.backgroundRefreshTasks())
	}
	m.advancePlayback()
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m Model) handleBus(msg busMsg) (tea.Model, tea.Cmd) {
	next := waitBus(msg.sub)
	switch msg.msg.Topic {
	case notify.TopicDisplayPreferencesDidChange:
		p, ok := msg.msg.Payload.(prefs.Prefs)
		if !ok {
			return m, next
		}
		resort := p.SortBy != m.prefs.SortBy || p.SortOrder != m.prefs.SortOrder || p.PageSize != m.prefs.PageSize
		p.OfflineMode = m.prefs.OfflineMode
		m.prefs = p
		m.theme = GetTheme(p.Theme)
		if resort && m.catalog != nil {
			m.catalog = library.NewCatalog(m.catalog.API(), library.Options{
				PageSize: p.PageSize,
				Sort:     library.Sort{By: p.SortBy, Order: p.SortOrder},
			})
			cmd := m.openCollection(m.library.kind, m.library.query)
			return m, tea.Batch(next, cmd)
		}
	case notify.TopicOfflineModeDidChange:
		if offline, ok := msg.msg.Payload.(bool); ok {
			m.prefs.OfflineMode = offline
			if offline {
				m.setStatus("offline mode on", false)
			} else {
				m.setStatus("offline mode off", false)
			}
		}
	case notify.TopicItemMetadataDidChange:
		if item, ok := msg.msg.Payload.(jellyfin.Item); ok && m.library.lib != nil && m.library.contains(item.ID) {
			m.library.lib.Respond(paging.Refresh{})
		}
	}
	return m, next
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m Model) close() {
	for _, sub := range m.subs {
		sub.Close()
	}
	if m.library.lib != nil {
		m.library.lib.Close()
	}
	if m.player.mgr != nil {
		m.player.mgr.Close()
	}
	m.edit.close()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type statusMsg struct {
	text string
	err  bool
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// savePrefsCmd persists prefs; the prefs watcher publishes the change.
func savePrefsCmd(path string, p prefs.Prefs) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		if err := prefs.Save(path, p); err != nil {
			return statusMsg{text: "save prefs: " + err.Error(), err: true}
		}
		return nil
	}
}

func clampIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	return min(max(idx, 0), n-1)
}

// moveSelection applies a navigation key to a list cursor.
func (m Model) moveSelection(msg tea.KeyMsg, selected, n int) (int, bool) {
	page := max(m.contentHeight()/2, 1)
	switch {
	case key.Matches(msg, m.keys.Down):
		return clampIndex(selected+1, n), true
	case key.Matches(msg, m.keys.Up):
		return clampIndex(selected-1, n), true
	case key.Matches(msg, m.keys.Top):
		return 0, true
	case key.Matches(msg, m.keys.Bottom):
		return clampIndex(n-1, n), true
	case key.Matches(msg, m.keys.HalfPageDown):
		return clampIndex(selected+page, n), true
	case key.Matches(msg, m.keys.HalfPageUp):
		return clampIndex(selected-page, n), true
	}
	return selected, false
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	if m.catalog != nil {
		m.openCollection(collectionItems, "")
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.close()
	} else {
		m.close()
	}
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
			return nil
		}
		logger := log.WithComponent("ui")
		logger.Error().Err(err).Msg("tui exited with error")
	}
	return err
}
