package editor

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/notify"
)

const PhaseUpdating controller.Phase = "updating"

const (
	MarkerSearching  controller.Marker = "searching"
	MarkerRefreshing controller.Marker = "refreshing"
)

// ItemAPI saves and re-reads items.
type ItemAPI interface {
	GetItem(ctx context.Context, itemID string) (jellyfin.Item, error)
	UpdateItem(ctx context.Context, item jellyfin.Item) error
}

// Elements is the element-specific half of an editor: where the element
// population comes from, how it is searched and how edits map onto an item.
type Elements[T any] interface {
	Fetch(ctx context.Context, item jellyfin.Item) ([]T, error)
	Search(population []T, term string) []T
	Add(item jellyfin.Item, elems []T) jellyfin.Item
	Remove(item jellyfin.Item, elems []T) jellyfin.Item
	Reorder(item jellyfin.Item, ordered []T) jellyfin.Item
}

// Action is an editor action.
type Action interface{ isAction() }

type (
	// Refresh reloads the element population.
	Refresh struct{}
	// Search filters the population into Matches.
	Search struct{ Term string }
	// Add appends elements to the item.
	Add[T any] struct{ Elements []T }
	// Remove drops elements from the item.
	Remove[T any] struct{ Elements []T }
	// Reorder replaces the item's elements with the given order.
	Reorder[T any] struct{ Elements []T }
	// Update saves an arbitrary edit of the item.
	Update struct{ Item jellyfin.Item }
)

func (Refresh) isAction()    {}
func (Search) isAction()     {}
func (Add[T]) isAction()     {}
func (Remove[T]) isAction()  {}
func (Reorder[T]) isAction() {}
func (Update) isAction()     {}

// Event is a one-shot editor event.
type Event interface{ isEvent() }

type (
	// Updated follows a saved edit.
	Updated struct{}
	// Loaded follows a reloaded population.
	Loaded struct{}
	// Failed reports a failed action.
	Failed struct{ Err *controller.Error }
)

func (Updated) isEvent() {}
func (Loaded) isEvent()  {}
func (Failed) isEvent()  {}

// Editor edits one list-valued field of an item.
type Editor[T any] struct {
	*controller.Controller[Action, Event]

	api      ItemAPI
	elements Elements[T]
	bus      notify.Publisher

	mu         sync.RWMutex
	item       jellyfin.Item
	population []T
	matches    []T
}

// New builds an editor for item. bus may be nil.
func New[T any](name string, item jellyfin.Item, api ItemAPI, elements Elements[T], bus notify.Publisher) *Editor[T] {
	e := &Editor[T]{api: api, elements: elements, bus: bus, item: item}
	e.Controller = controller.New[Action, Event](e.handle, controller.Options[Event]{
		Name:    name,
		OnError: func(err *controller.Error) Event { return Failed{Err: err} },
	})
	return e
}

// Item returns the item as last read from the server.
func (e *Editor[T]) Item() jellyfin.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.item
}

// Population returns every element that could be added.
func (e *Editor[T]) Population() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.population)
}

// Matches returns the result of the last search.
func (e *Editor[T]) Matches() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.matches)
}

func (e *Editor[T]) handle(_ controller.State, action Action) controller.Step[Event] {
	e.mu.RLock()
	item := e.item
	population := slices.Clone(e.population)
	e.mu.RUnlock()

	switch a := action.(type) {
	case Refresh:
		return controller.Step[Event]{
			State:      controller.Initial(),
			Marker:     MarkerRefreshing,
			Concurrent: true,
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				found, err := e.elements.Fetch(ctx, item)
				if err != nil {
					return controller.Result[Event]{}, fmt.Errorf("load elements: %w", err)
				}
				return controller.Result[Event]{
					State:  controller.Content(),
					Events: []Event{Loaded{}},
					Apply: func() {
						e.mu.Lock()
						e.population = found
						e.mu.Unlock()
					},
				}, nil
			},
		}
	case Search:
		term := a.Term
		return controller.Step[Event]{
			Marker:     MarkerSearching,
			Concurrent: true,
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				if err := ctx.Err(); err != nil {
					return controller.Result[Event]{}, err
				}
				found := e.elements.Search(population, term)
				return controller.Result[Event]{
					Apply: func() {
						e.mu.Lock()
						e.matches = found
						e.mu.Unlock()
					},
				}, nil
			},
		}
	case Add[T]:
		return e.save(e.elements.Add(item, a.Elements))
	case Remove[T]:
		return e.save(e.elements.Remove(item, a.Elements))
	case Reorder[T]:
		return e.save(e.elements.Reorder(item, a.Elements))
	case Update:
		return e.save(a.Item)
	}
	return controller.Keep[Event]()
}

// save writes next, re-reads it and announces the change.
func (e *Editor[T]) save(next jellyfin.Item) controller.Step[Event] {
	return controller.Step[Event]{
		State: controller.Busy(PhaseUpdating),
		Task: func(ctx context.Context) (controller.Result[Event], error) {
			if err := e.api.UpdateItem(ctx, next); err != nil {
				return controller.Result[Event]{}, fmt.Errorf("update item: %w", err)
			}
			fresh, err := e.api.GetItem(ctx, next.ID)
			if err != nil {
				return controller.Result[Event]{}, fmt.Errorf("reload item: %w", err)
			}
			if e.bus != nil {
				e.bus.Publish(notify.TopicItemMetadataDidChange, fresh)
			}
			return controller.Result[Event]{
				State:  controller.Content(),
				Events: []Event{Updated{}},
				Apply: func() {
					e.mu.Lock()
					e.item = fresh
					e.mu.Unlock()
				},
			}, nil
		},
	}
}
