package devices

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
)

const (
	MarkerGettingDevices  controller.Marker = "gettingDevices"
	MarkerDeletingDevices controller.Marker = "deletingDevices"
)

// maxParallelDeletes bounds concurrent delete calls.
const maxParallelDeletes = 4

// API is the part of the media server client the manager needs.
type API interface {
	GetDevices(ctx context.Context) ([]jellyfin.DeviceInfo, error)
	DeleteDevice(ctx context.Context, id string) error
}

// Action is a device management action.
type Action interface{ isAction() }

// GetDevices reloads the device list.
type GetDevices struct{}

// DeleteDevices removes the given devices. The device usher itself runs as
// is skipped.
type DeleteDevices struct {
	IDs []string
}

func (GetDevices) isAction()    {}
func (DeleteDevices) isAction() {}

func (GetDevices) String() string    { return "getDevices" }
func (DeleteDevices) String() string { return "deleteDevices" }

// Event is a one-shot device event.
type Event interface{ isEvent() }

// Success follows every completed load or delete.
type Success struct{}

// Failed reports a failed load or delete.
type Failed struct {
	Err *controller.Error
}

func (Success) isEvent() {}
func (Failed) isEvent()  {}

// Manager lists and deletes the server's devices.
type Manager struct {
	*controller.Controller[Action, Event]

	api    API
	selfID string

	mu      sync.RWMutex
	devices []jellyfin.DeviceInfo
}

// New builds a manager. selfID is the device id of this client.
func New(api API, selfID string) *Manager {
	m := &Manager{api: api, selfID: selfID}
	m.Controller = controller.New[Action, Event](m.handle, controller.Options[Event]{
		Name:    "devices",
		OnError: func(err *controller.Error) Event { return Failed{Err: err} },
	})
	return m
}

// Devices returns the loaded devices, most recently active first.
func (m *Manager) Devices() []jellyfin.DeviceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.devices)
}

func (m *Manager) handle(_ controller.State, action Action) controller.Step[Event] {
	switch a := action.(type) {
	case GetDevices:
		return controller.Step[Event]{
			Marker: MarkerGettingDevices,
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				return m.reload(ctx)
			},
		}
	case DeleteDevices:
		ids := slices.Clone(a.IDs)
		return controller.Step[Event]{
			Marker: MarkerDeletingDevices,
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				if len(ids) == 0 {
					return controller.Result[Event]{}, nil
				}
				if err := m.deleteAll(ctx, ids); err != nil {
					return controller.Result[Event]{}, err
				}
				return m.reload(ctx)
			},
		}
	}
	return controller.Keep[Event]()
}

func (m *Manager) deleteAll(ctx context.Context, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDeletes)
	for _, id := range ids {
		if id == "" || id == m.selfID {
			continue
		}
		g.Go(func() error {
			if err := m.api.DeleteDevice(gctx, id); err != nil {
				return fmt.Errorf("delete device %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) reload(ctx context.Context) (controller.Result[Event], error) {
	devices, err := m.api.GetDevices(ctx)
	if err != nil {
		return controller.Result[Event]{}, fmt.Errorf("load devices: %w", err)
	}
	sortByActivity(devices)
	return controller.Result[Event]{
		State:  controller.Content(),
		Events: []Event{Success{}},
		Apply: func() {
			m.mu.Lock()
			m.devices = devices
			m.mu.Unlock()
		},
	}, nil
}

// sortByActivity orders devices newest activity first; devices that never
// reported activity go last.
func sortByActivity(devices []jellyfin.DeviceInfo) {
	slices.SortStableFunc(devices, func(a, b jellyfin.DeviceInfo) int {
		return activity(b).Compare(activity(a))
	})
}

func activity(d jellyfin.DeviceInfo) time.Time {
	if d.DateLastActivity == nil {
		return time.Time{}
	}
	return *d.DateLastActivity
}

// SelfID returns the device id of this client.
func (m *Manager) SelfID() string { return m.selfID }
