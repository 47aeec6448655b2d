package player

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
)

const (
	PhaseLoadingItem controller.Phase = "loadingItem"
	PhaseBuffering   controller.Phase = "buffering"
	PhasePlaying     controller.Phase = "playing"
	PhasePaused      controller.Phase = "paused"
	PhaseStopped     controller.Phase = "stopped"
)

// PlaybackItem is a resolved, playable reference to a catalog item.
type PlaybackItem struct {
	Item          jellyfin.Item
	MediaSource   jellyfin.MediaSource
	StreamURL     string
	PlaySessionID string
}

// Provider resolves the playback item for the manager's catalog item.
type Provider func(ctx context.Context) (PlaybackItem, error)

// Progress is the playback position.
type Progress struct {
	Fraction float64
	Seconds  int
}

// Speed is a playback rate multiplier.
type Speed float64

const (
	SpeedHalf          Speed = 0.5
	SpeedThreeQuarters Speed = 0.75
	SpeedNormal        Speed = 1
	SpeedOneQuarter    Speed = 1.25
	SpeedOneHalf       Speed = 1.5
	SpeedDouble        Speed = 2
)

// Speeds lists the supported rates in ascending order.
var Speeds = []Speed{SpeedHalf, SpeedThreeQuarters, SpeedNormal, SpeedOneQuarter, SpeedOneHalf, SpeedDouble}

func (s Speed) String() string { return fmt.Sprintf("%gx", float64(s)) }

// Action is a playback action.
type Action interface{ isAction() }

type (
	// Fail moves to the error state, for failures reported by the engine.
	Fail struct{ Err *controller.Error }
	Pause  struct{}
	Play   struct{}
	Buffer struct{}
	// Ended marks the end of the current item.
	Ended struct{}
	// Stop tears playback down. It is final for the manager.
	Stop struct{}
	// PlayNew queues another item.
	PlayNew struct {
		Item        jellyfin.Item
		MediaSource jellyfin.MediaSource
	}
	// Seek moves to an absolute position.
	Seek struct{ Seconds int }
	// SetSpeed changes the playback rate.
	SetSpeed struct{ Speed Speed }
)

func (Fail) isAction()     {}
func (Pause) isAction()    {}
func (Play) isAction()     {}
func (Buffer) isAction()   {}
func (Ended) isAction()    {}
func (Stop) isAction()     {}
func (PlayNew) isAction()  {}
func (Seek) isAction()     {}
func (SetSpeed) isAction() {}

// Event is a one-shot playback event.
type Event interface{ isEvent() }

type (
	// PlaybackStopped tells the engine to tear down. Sent at most once.
	PlaybackStopped struct{}
	// StartPlayback hands a resolved item to the engine.
	StartPlayback struct{ Item PlaybackItem }
	// Failed reports that the playback item could not be resolved.
	Failed struct{ Err *controller.Error }
)

func (PlaybackStopped) isEvent() {}
func (StartPlayback) isEvent()   {}
func (Failed) isEvent()          {}

// Manager coordinates playback of one catalog item with an external engine.
type Manager struct {
	*controller.Controller[Action, Event]

	mu           sync.RWMutex
	item         jellyfin.Item
	playbackItem *PlaybackItem
	progress     Progress
	queue        []jellyfin.Item
	speed        Speed
}

// New starts resolving item through provider right away; the manager is in
// loadingItem until it resolves. Any action accepted before then cancels the
// resolution and its result is dropped.
func New(item jellyfin.Item, provider Provider) *Manager {
	m := newManager(item, controller.Initial())
	m.Perform(controller.Step[Event]{
		State: controller.Busy(PhaseLoadingItem),
		Task: func(ctx context.Context) (controller.Result[Event], error) {
			pi, err := provider(ctx)
			if err != nil {
				return controller.Result[Event]{}, fmt.Errorf("resolve playback item: %w", err)
			}
			return controller.Result[Event]{
				State:  controller.Busy(PhaseBuffering),
				Events: []Event{StartPlayback{Item: pi}},
				Apply: func() {
					m.mu.Lock()
					m.playbackItem = &pi
					m.mu.Unlock()
				},
			}, nil
		},
	})
	return m
}

// NewWithPlaybackItem starts buffering an already resolved item.
func NewWithPlaybackItem(pi PlaybackItem) *Manager {
	m := newManager(pi.Item, controller.Busy(PhaseBuffering))
	m.playbackItem = &pi
	m.queue = append(m.queue, pi.Item)
	return m
}

func newManager(item jellyfin.Item, initial controller.State) *Manager {
	m := &Manager{item: item, speed: SpeedNormal}
	m.Controller = controller.New[Action, Event](m.handle, controller.Options[Event]{
		Name:    "player",
		Initial: initial,
		OnError: func(err *controller.Error) Event { return Failed{Err: err} },
	})
	return m
}

// handle answers every accepted action with a step that cancels the resolve
// task, so a late provider result never lands on state set after it.
func (m *Manager) handle(current controller.State, action Action) controller.Step[Event] {
	switch a := action.(type) {
	case Fail:
		err := a.Err
		if err == nil {
			err = controller.Errorf("playback failed")
		}
		return transition(controller.Failed(err))
	case Pause:
		return transition(controller.Busy(PhasePaused))
	case Play:
		return transition(controller.Busy(PhasePlaying))
	case Buffer:
		return transition(controller.Busy(PhaseBuffering))
	case Ended:
		return transition(controller.Busy(PhaseLoadingItem))
	case Stop:
		return controller.Step[Event]{
			State:    controller.Busy(PhaseStopped),
			Events:   []Event{PlaybackStopped{}},
			Cancel:   true,
			Terminal: true,
		}
	case PlayNew:
		m.mu.Lock()
		m.queue = append(m.queue, a.Item)
		m.mu.Unlock()
		return transition(controller.Busy(PhaseBuffering))
	case Seek:
		m.mu.Lock()
		m.progress = progressAt(m.item, a.Seconds)
		m.mu.Unlock()
		return transition(current)
	case SetSpeed:
		if slices.Contains(Speeds, a.Speed) {
			m.mu.Lock()
			m.speed = a.Speed
			m.mu.Unlock()
		}
		return transition(current)
	}
	return controller.Keep[Event]()
}

func transition(next controller.State) controller.Step[Event] {
	return controller.Step[Event]{State: next, Cancel: true}
}

func progressAt(item jellyfin.Item, seconds int) Progress {
	seconds = max(seconds, 0)
	total := item.RunTimeTicks / jellyfin.TicksPerSecond
	if total <= 0 {
		return Progress{Seconds: seconds}
	}
	fraction := float64(seconds) / float64(total)
	return Progress{Fraction: min(fraction, 1), Seconds: seconds}
}

// Item returns the catalog item being played.
func (m *Manager) Item() jellyfin.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.item
}

// PlaybackItem returns the resolved item, or false while it is resolving.
func (m *Manager) PlaybackItem() (PlaybackItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.playbackItem == nil {
		return PlaybackItem{}, false
	}
	return *m.playbackItem, true
}

// Progress returns the last seek position.
func (m *Manager) Progress() Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}

// Queue returns the queued catalog items in order.
func (m *Manager) Queue() []jellyfin.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.queue)
}

// Speed returns the playback rate.
func (m *Manager) Speed() Speed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.speed
}
