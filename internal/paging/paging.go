package paging

import (
	"context"
	"fmt"
	"sync"

	"github.com/five82/usher/internal/controller"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 50

const (
	PhaseRefreshing      controller.Phase = "refreshing"
	PhaseGettingNextPage controller.Phase = "gettingNextPage"
)

// MarkerGettingRandomItem is held while a random item is fetched.
const MarkerGettingRandomItem controller.Marker = "gettingRandomItem"

// Request describes one page fetch.
type Request struct {
	// Page is the zero-based page index.
	Page int
	// StartIndex is the server offset, Page * Limit.
	StartIndex int
	Limit      int
	// Random asks the server for random ordering.
	Random bool
}

// Fetcher loads one page of items.
type Fetcher[T any] func(ctx context.Context, req Request) ([]T, error)

// Action is a paging action.
type Action interface{ isAction() }

type (
	Refresh    struct{}
	NextPage   struct{}
	RandomItem struct{}
)

func (Refresh) isAction()    {}
func (NextPage) isAction()   {}
func (RandomItem) isAction() {}

func (Refresh) String() string    { return "refresh" }
func (NextPage) String() string   { return "nextPage" }
func (RandomItem) String() string { return "randomItem" }

// Event is a one-shot paging event.
type Event interface{ isEvent() }

// GotRandomItem carries the result of RandomItem.
type GotRandomItem[T any] struct {
	Item T
}

// Failed reports a fetch failure.
type Failed struct {
	Err *controller.Error
}

func (GotRandomItem[T]) isEvent() {}
func (Failed) isEvent()           {}

// Config tunes a Library. The zero value uses DefaultPageSize and starts
// empty.
type Config[T any] struct {
	PageSize int
	// Seed pre-populates the collection. The cursor then starts at
	// len(Seed)/PageSize so the next fetch continues after the seeded pages.
	Seed []T
}

// Library is a cursor over a remote, page-organized collection. Items are
// de-duplicated by the key returned from id and keep insertion order.
type Library[T any, K comparable] struct {
	*controller.Controller[Action, Event]

	fetch    Fetcher[T]
	id       func(T) K
	pageSize int

	mu      sync.RWMutex
	items   []T
	index   map[K]struct{}
	next    int
	hasNext bool
}

// New builds a library. Nothing is fetched until Refresh is submitted.
func New[T any, K comparable](name string, fetch Fetcher[T], id func(T) K, cfg Config[T]) *Library[T, K] {
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	l := &Library[T, K]{
		fetch:    fetch,
		id:       id,
		pageSize: size,
		index:    make(map[K]struct{}),
		hasNext:  true,
	}

	initial := controller.Initial()
	if len(cfg.Seed) > 0 {
		l.appendLocked(cfg.Seed)
		l.next = len(cfg.Seed) / size
		l.hasNext = len(cfg.Seed)%size == 0
		initial = controller.Content()
	}

	l.Controller = controller.New[Action, Event](l.handle, controller.Options[Event]{
		Name:    name,
		Initial: initial,
		OnError: func(err *controller.Error) Event { return Failed{Err: err} },
	})
	return l
}

func (l *Library[T, K]) handle(_ controller.State, action Action) controller.Step[Event] {
	switch action.(type) {
	case Refresh:
		l.mu.Lock()
		l.items = nil
		l.index = make(map[K]struct{})
		l.next = 0
		l.hasNext = false
		l.mu.Unlock()
		return controller.Step[Event]{
			State: controller.Busy(PhaseRefreshing),
			Task:  l.pageTask(0, true),
		}

	case NextPage:
		l.mu.RLock()
		hasNext, next := l.hasNext, l.next
		l.mu.RUnlock()
		if !hasNext {
			return controller.Keep[Event]()
		}
		return controller.Step[Event]{
			State: controller.Busy(PhaseGettingNextPage),
			Task:  l.pageTask(next, false),
		}

	case RandomItem:
		return controller.Step[Event]{
			Task:       l.randomTask(),
			Marker:     MarkerGettingRandomItem,
			Concurrent: true,
		}
	}
	return controller.Keep[Event]()
}

func (l *Library[T, K]) pageTask(page int, replace bool) controller.Task[Event] {
	size := l.pageSize
	return func(ctx context.Context) (controller.Result[Event], error) {
		items, err := l.fetch(ctx, Request{Page: page, StartIndex: page * size, Limit: size})
		if err != nil {
			return controller.Result[Event]{}, fmt.Errorf("fetch page %d: %w", page, err)
		}
		return controller.Result[Event]{
			State: controller.Content(),
			Apply: func() {
				l.mu.Lock()
				defer l.mu.Unlock()
				if replace {
					l.items = nil
					l.index = make(map[K]struct{})
				}
				l.appendLocked(items)
				l.next = page + 1
				l.hasNext = len(items) == size
			},
		}, nil
	}
}

func (l *Library[T, K]) randomTask() controller.Task[Event] {
	return func(ctx context.Context) (controller.Result[Event], error) {
		items, err := l.fetch(ctx, Request{Limit: 1, Random: true})
		if err != nil {
			return controller.Result[Event]{}, fmt.Errorf("fetch random item: %w", err)
		}
		if len(items) == 0 {
			return controller.Result[Event]{}, controller.Errorf("no items available")
		}
		return controller.Result[Event]{
			Events: []Event{GotRandomItem[T]{Item: items[0]}},
		}, nil
	}
}

func (l *Library[T, K]) appendLocked(items []T) {
	for _, item := range items {
		key := l.id(item)
		if _, ok := l.index[key]; ok {
			continue
		}
		l.index[key] = struct{}{}
		l.items = append(l.items, item)
	}
}

// Items returns a copy of the collection in display order.
func (l *Library[T, K]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items held.
func (l *Library[T, K]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Cursor returns the zero-based index of the page NextPage fetches. It
// only advances when a fetch succeeds.
func (l *Library[T, K]) Cursor() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.next
}

// HasNextPage reports whether NextPage would fetch.
func (l *Library[T, K]) HasNextPage() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasNext
}

// PageSize returns the configured page size.
func (l *Library[T, K]) PageSize() int { return l.pageSize }
