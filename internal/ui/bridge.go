package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/usher/internal/notify"
)

// Controllers publish on channels; these commands turn the next value into
// a tea.Msg. Each handler re-arms its command after consuming the message.
// A closed channel yields nil, which Bubble Tea ignores.

func waitChange(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func waitEvent[E any](ch <-chan E, wrap func(E) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(ev)
	}
}

type busMsg struct {
	sub *notify.Subscription
	msg notify.Message
}

func waitBus(sub *notify.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-sub.C()
		if !ok {
			return nil
		}
		return busMsg{sub: sub, msg: msg}
	}
}
