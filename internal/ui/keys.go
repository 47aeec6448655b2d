package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit          key.Binding
	Help          key.Binding
	CycleTheme    key.Binding
	ToggleOffline key.Binding
	Tab           key.Binding
	ShiftTab      key.Binding
	Escape        key.Binding

	// View switching
	ViewLibrary  key.Binding
	ViewSessions key.Binding
	ViewDevices  key.Binding
	ViewTasks    key.Binding
	ViewPlayer   key.Binding
	ViewLogs     key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Library actions
	CycleCollection key.Binding
	Refresh         key.Binding
	NextPage        key.Binding
	RandomItem      key.Binding
	TogglePlayed    key.Binding
	Search          key.Binding
	Play            key.Binding
	PlayRandom      key.Binding
	AddTag          key.Binding
	RefreshMetadata key.Binding

	// Devices and tasks
	Delete         key.Binding
	StartTask      key.Binding
	StopTask       key.Binding
	RestartServer  key.Binding
	ShutdownServer key.Binding

	// Player
	PlayPause  key.Binding
	StopPlay   key.Binding
	SeekBack   key.Binding
	SeekFwd    key.Binding
	SlowerRate key.Binding
	FasterRate key.Binding

	// Logs
	ToggleFollow key.Binding
	CycleLevel   key.Binding

	// Input
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		ToggleOffline: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Toggle offline mode"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back / up a level"),
		),

		ViewLibrary: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Library"),
		),
		ViewSessions: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Sessions"),
		),
		ViewDevices: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Devices"),
		),
		ViewTasks: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Tasks"),
		),
		ViewPlayer: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Player"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("6", "l"),
			key.WithHelp("6/l", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		CycleCollection: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Items/Next up/Resume"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Next page"),
		),
		RandomItem: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Random item"),
		),
		TogglePlayed: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Toggle watched"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		Play: key.NewBinding(
			key.WithKeys("enter", "p"),
			key.WithHelp("enter/p", "Play"),
		),
		PlayRandom: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Play random pick"),
		),
		AddTag: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Add tag"),
		),
		RefreshMetadata: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "Refresh metadata"),
		),

		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete device"),
		),
		StartTask: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Start task"),
		),
		StopTask: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Stop task"),
		),
		RestartServer: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Restart server"),
		),
		ShutdownServer: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "Shut down server"),
		),

		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Play/pause"),
		),
		StopPlay: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Stop playback"),
		),
		SeekBack: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("left", "Back 10s"),
		),
		SeekFwd: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("right", "Forward 10s"),
		),
		SlowerRate: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Slower"),
		),
		FasterRate: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Faster"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle level filter"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view, one column per group.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewLibrary, k.ViewSessions, k.ViewDevices, k.ViewTasks, k.ViewPlayer, k.ViewLogs, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp},
		{k.CycleCollection, k.Search, k.Refresh, k.NextPage, k.RandomItem, k.PlayRandom, k.TogglePlayed, k.AddTag, k.RefreshMetadata, k.Play},
		{k.Delete, k.StartTask, k.StopTask, k.RestartServer, k.ShutdownServer},
		{k.PlayPause, k.StopPlay, k.SeekBack, k.SeekFwd, k.SlowerRate, k.FasterRate},
		{k.ToggleFollow, k.CycleLevel},
		{k.CycleTheme, k.ToggleOffline, k.Help, k.Quit},
	}
}
