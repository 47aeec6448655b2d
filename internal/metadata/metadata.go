package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
	"github.com/five82/usher/internal/log"
	"github.com/five82/usher/internal/notify"
)

const PhaseRefreshing controller.Phase = "refreshing"

const (
	defaultInterval    = 2 * time.Second
	defaultMaxInterval = 30 * time.Second
	defaultAttempts    = 8
)

var errNotFinished = errors.New("refresh still running")

// API triggers refreshes and reads items back.
type API interface {
	RefreshItem(ctx context.Context, itemID string, opts jellyfin.RefreshOptions) error
	GetItem(ctx context.Context, itemID string) (jellyfin.Item, error)
}

// Action is a metadata refresh action.
type Action interface{ isAction() }

// RefreshMetadata asks the server to refresh the item and waits for it.
type RefreshMetadata struct {
	MetadataMode    string
	ImageMode       string
	ReplaceMetadata bool
	ReplaceImages   bool
}

// ReportError surfaces an error raised outside the controller, such as a
// failed form validation.
type ReportError struct {
	Err *controller.Error
}

func (RefreshMetadata) isAction() {}
func (ReportError) isAction()     {}

// Event is a one-shot refresh event.
type Event interface{ isEvent() }

type (
	// RefreshTriggered is emitted as soon as a refresh is requested.
	RefreshTriggered struct{ At time.Time }
	// RefreshCompleted follows the item reporting a newer refresh date.
	RefreshCompleted struct{}
	// Failed reports a failed trigger or an exhausted wait.
	Failed struct{ Err *controller.Error }
)

func (RefreshTriggered) isEvent() {}
func (RefreshCompleted) isEvent() {}
func (Failed) isEvent()           {}

// Options tune completion polling. Zero values use a 2s first interval
// doubling up to 30s, for 8 checks.
type Options struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Attempts    int
	Now         func() time.Time
}

// Refresher refreshes one item's metadata.
type Refresher struct {
	*controller.Controller[Action, Event]

	api  API
	bus  notify.Publisher
	opts Options

	mu   sync.RWMutex
	item jellyfin.Item
}

// New builds a refresher for item. bus may be nil.
func New(item jellyfin.Item, api API, bus notify.Publisher, opts Options) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaultMaxInterval
	}
	if opts.MaxInterval < opts.Interval {
		opts.MaxInterval = opts.Interval
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Refresher{api: api, bus: bus, opts: opts, item: item}
	r.Controller = controller.New[Action, Event](r.handle, controller.Options[Event]{
		Name:    "metadata",
		OnError: func(err *controller.Error) Event { return Failed{Err: err} },
	})
	return r
}

// Item returns the item as last read from the server.
func (r *Refresher) Item() jellyfin.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.item
}

func (r *Refresher) handle(_ controller.State, action Action) controller.Step[Event] {
	switch a := action.(type) {
	case ReportError:
		err := a.Err
		if err == nil {
			err = controller.Errorf("unknown error")
		}
		return controller.Step[Event]{
			Cancel: true,
			State:  controller.Failed(err),
			Events: []Event{Failed{Err: err}},
		}
	case RefreshMetadata:
		r.mu.RLock()
		item := r.item
		r.mu.RUnlock()
		at := r.opts.Now()
		return controller.Step[Event]{
			State:  controller.Busy(PhaseRefreshing),
			Events: []Event{RefreshTriggered{At: at}},
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				return r.refresh(ctx, item, a, at)
			},
		}
	}
	return controller.Keep[Event]()
}

func (r *Refresher) refresh(ctx context.Context, item jellyfin.Item, a RefreshMetadata, at time.Time) (controller.Result[Event], error) {
	opts := jellyfin.RefreshOptions{
		MetadataRefreshMode: a.MetadataMode,
		ImageRefreshMode:    a.ImageMode,
		ReplaceAllMetadata:  a.ReplaceMetadata,
		ReplaceAllImages:    a.ReplaceImages,
	}
	if err := r.api.RefreshItem(ctx, item.ID, opts); err != nil {
		return controller.Result[Event]{}, fmt.Errorf("trigger refresh: %w", err)
	}

	fresh, err := r.waitForCompletion(ctx, item, at)
	if err != nil {
		return controller.Result[Event]{}, err
	}
	if r.bus != nil {
		r.bus.Publish(notify.TopicItemMetadataDidChange, fresh)
	}
	return controller.Result[Event]{
		State:  controller.Content(),
		Events: []Event{RefreshCompleted{}},
		Apply: func() {
			r.mu.Lock()
			r.item = fresh
			r.mu.Unlock()
		},
	}, nil
}

// waitForCompletion polls the item until its refresh date moves past the one
// it had before, or, for items never refreshed, reaches at. The server only
// queues the work, so the first check waits one interval.
func (r *Refresher) waitForCompletion(ctx context.Context, item jellyfin.Item, at time.Time) (jellyfin.Item, error) {
	logger := log.WithComponent("metadata").With().Str(log.FieldItemID, item.ID).Logger()

	timer := time.NewTimer(r.opts.Interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return jellyfin.Item{}, ctx.Err()
	case <-timer.C:
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.opts.Interval
	policy.MaxInterval = r.opts.MaxInterval
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	attempt := 0
	fresh, err := backoff.Retry(ctx, func() (jellyfin.Item, error) {
		attempt++
		got, err := r.api.GetItem(ctx, item.ID)
		if err != nil {
			var apiErr *jellyfin.APIError
			if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
				return jellyfin.Item{}, backoff.Permanent(err)
			}
			return jellyfin.Item{}, err
		}
		if !refreshed(item, got, at) {
			return jellyfin.Item{}, errNotFinished
		}
		return got, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(r.opts.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug().Err(err).Int(log.FieldAttempt, attempt).Dur("next", next).Msg("metadata refresh pending")
		}),
	)
	switch {
	case err == nil:
		return fresh, nil
	case ctx.Err() != nil:
		return jellyfin.Item{}, ctx.Err()
	case errors.Is(err, errNotFinished):
		return jellyfin.Item{}, fmt.Errorf("metadata refresh did not finish after %d checks", attempt)
	default:
		return jellyfin.Item{}, fmt.Errorf("check refresh: %w", err)
	}
}

func refreshed(before, after jellyfin.Item, at time.Time) bool {
	if after.DateLastRefreshed == nil {
		return false
	}
	if before.DateLastRefreshed != nil {
		return after.DateLastRefreshed.After(*before.DateLastRefreshed)
	}
	return !after.DateLastRefreshed.Before(at)
}
