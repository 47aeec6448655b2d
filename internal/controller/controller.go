package controller

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/five82/usher/internal/log"
)

const (
	defaultEventBuffer = 64
	dropLogEvery       = 100
)

// Options configure a Controller.
type Options[E any] struct {
	// Name identifies the controller in logs.
	Name string
	// Initial is the starting state; defaults to PhaseInitial.
	Initial State
	// OnError builds the event emitted when a task fails. Nil emits nothing.
	OnError func(*Error) E
	// EventBuffer sizes the event channel; defaults to 64.
	EventBuffer int
}

type lane struct {
	generation uint64
	cancel     context.CancelFunc
}

// Controller is the generic Action/State/Event controller. Respond is the
// synchronous entry point; asynchronous work is cancelled and replaced on
// every new conflicting action, and a generation counter keeps superseded
// tasks from publishing.
type Controller[A any, E any] struct {
	name    string
	handler Handler[A, E]
	onError func(*Error) E
	logger  zerolog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	lanes      map[Marker]*lane
	markers    []Marker
	counts     map[Marker]int
	terminal   bool
	closed     bool
	inflight   int
	idle       chan struct{}

	events  chan E
	changes chan struct{}
	dropped atomic.Uint64
}

// New builds a controller around handler.
func New[A any, E any](handler Handler[A, E], opts Options[E]) *Controller[A, E] {
	initial := opts.Initial
	if initial.IsZero() {
		initial = Initial()
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	name := opts.Name
	if name == "" {
		name = "controller"
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Controller[A, E]{
		name:       name,
		handler:    handler,
		onError:    opts.OnError,
		logger:     log.WithComponent("controller").With().Str("controller", name).Logger(),
		baseCtx:    ctx,
		baseCancel: cancel,
		state:      initial,
		lanes:      make(map[Marker]*lane),
		counts:     make(map[Marker]int),
		idle:       idle,
		events:     make(chan E, buffer),
		changes:    make(chan struct{}, 1),
	}
}

// Respond submits an action and returns the state after its synchronous
// part. Once the controller is stopped or closed the action is ignored.
func (c *Controller[A, E]) Respond(action A) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.terminal {
		c.logger.Debug().Str(log.FieldAction, actionName(action)).Msg("action ignored")
		return c.state
	}
	c.logger.Debug().Str(log.FieldAction, actionName(action)).Msg("respond")
	return c.performLocked(c.handler(c.state, action))
}

// Perform applies a step that did not originate from an action, such as
// work a controller starts at construction.
func (c *Controller[A, E]) Perform(step Step[E]) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.terminal {
		return c.state
	}
	return c.performLocked(step)
}

func (c *Controller[A, E]) performLocked(step Step[E]) State {
	if step.Cancel {
		c.cancelPrimaryLocked()
	}
	if !step.State.IsZero() {
		c.setStateLocked(step.State)
	}
	for _, ev := range step.Events {
		c.emitLocked(ev)
	}
	if step.Task != nil && !step.Terminal {
		c.launchLocked(step)
	}
	if step.Terminal {
		c.terminal = true
		c.cancelPrimaryLocked()
		for _, l := range c.lanes {
			if l.cancel != nil {
				l.cancel()
				l.cancel = nil
			}
			l.generation++
		}
	}
	c.notifyLocked()
	return c.state
}

func (c *Controller[A, E]) launchLocked(step Step[E]) {
	ctx, cancel := context.WithCancel(c.baseCtx)

	var current func() bool
	if step.Concurrent {
		l := c.lanes[step.Marker]
		if l == nil {
			l = &lane{}
			c.lanes[step.Marker] = l
		}
		if l.cancel != nil {
			l.cancel()
		}
		l.generation++
		l.cancel = cancel
		gen := l.generation
		current = func() bool { return l.generation == gen }
	} else {
		if c.cancel != nil {
			c.cancel()
		}
		c.generation++
		c.cancel = cancel
		gen := c.generation
		current = func() bool { return c.generation == gen }
	}

	if step.Marker != "" {
		c.addMarkerLocked(step.Marker)
	}
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.wg.Add(1)
	go c.run(ctx, cancel, step, current)
}

func (c *Controller[A, E]) run(ctx context.Context, cancel context.CancelFunc, step Step[E], current func() bool) {
	defer c.wg.Done()
	defer cancel()

	res, err := step.Task(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if step.Marker != "" {
		c.removeMarkerLocked(step.Marker)
	}
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
	if c.closed {
		return
	}

	switch {
	case !current() || c.terminal:
		c.logger.Debug().Str(log.FieldMarker, string(step.Marker)).Msg("superseded task finished, result dropped")
	case err != nil && (IsCancellation(err) || ctx.Err() != nil):
		c.logger.Debug().Str(log.FieldMarker, string(step.Marker)).Msg("task cancelled")
	case err != nil:
		e := NewError(err)
		c.logger.Warn().Str("error", e.Message).Str(log.FieldMarker, string(step.Marker)).Msg("task failed")
		c.setStateLocked(Failed(e))
		if c.onError != nil {
			c.emitLocked(c.onError(e))
		}
	default:
		if res.Apply != nil {
			res.Apply()
		}
		if !res.State.IsZero() {
			c.setStateLocked(res.State)
		}
		for _, ev := range res.Events {
			c.emitLocked(ev)
		}
	}
	c.notifyLocked()
}

func (c *Controller[A, E]) cancelPrimaryLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
}

func (c *Controller[A, E]) setStateLocked(next State) {
	if next == c.state {
		return
	}
	c.logger.Debug().
		Str(log.FieldOldState, c.state.String()).
		Str(log.FieldNewState, next.String()).
		Msg("state transition")
	c.state = next
}

func (c *Controller[A, E]) emitLocked(ev E) {
	select {
	case c.events <- ev:
	default:
		count := c.dropped.Add(1)
		if count%dropLogEvery == 1 {
			c.logger.Warn().Uint64("dropped", count).Msg("event buffer full, event dropped")
		}
	}
}

func (c *Controller[A, E]) notifyLocked() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Controller[A, E]) addMarkerLocked(m Marker) {
	if c.counts[m] == 0 {
		c.markers = append(c.markers, m)
	}
	c.counts[m]++
}

func (c *Controller[A, E]) removeMarkerLocked(m Marker) {
	n := c.counts[m]
	if n == 0 {
		return
	}
	if n > 1 {
		c.counts[m] = n - 1
		return
	}
	delete(c.counts, m)
	for i, existing := range c.markers {
		if existing == m {
			c.markers = append(c.markers[:i], c.markers[i+1:]...)
			break
		}
	}
}

// State returns the current state.
func (c *Controller[A, E]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Background returns the in-flight background markers in start order.
func (c *Controller[A, E]) Background() []Marker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.markers) == 0 {
		return nil
	}
	out := make([]Marker, len(c.markers))
	copy(out, c.markers)
	return out
}

// HasMarker reports whether m is currently in the background set.
func (c *Controller[A, E]) HasMarker(m Marker) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[m] > 0
}

// Stopped reports whether a terminal step was applied.
func (c *Controller[A, E]) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

// Events delivers one-shot events. It is closed by Close.
func (c *Controller[A, E]) Events() <-chan E {
	return c.events
}

// Changes receives a coalesced signal whenever state, markers or owner data
// may have changed. It is closed by Close.
func (c *Controller[A, E]) Changes() <-chan struct{} {
	return c.changes
}

// Dropped reports how many events were discarded because nobody drained
// the event channel.
func (c *Controller[A, E]) Dropped() uint64 {
	return c.dropped.Load()
}

// Await blocks until no task is in flight and returns the state at that
// point.
func (c *Controller[A, E]) Await(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		if c.inflight == 0 {
			s := c.state
			c.mu.Unlock()
			return s, nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// Close cancels all work, waits for tasks to return and closes the event
// and change channels. Safe to call more than once.
func (c *Controller[A, E]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.baseCancel()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	close(c.events)
	close(c.changes)
	c.mu.Unlock()
}
