package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
)

const (
	MarkerRefreshing           controller.Marker = "refreshing"
	MarkerBackgroundRefreshing controller.Marker = "backgroundRefreshing"
)

// API is the scheduled task half of the media server client.
type API interface {
	GetScheduledTasks(ctx context.Context) ([]jellyfin.TaskInfo, error)
	StartTask(ctx context.Context, taskID string) error
	StopTask(ctx context.Context, taskID string) error
	RestartServer(ctx context.Context) error
	ShutdownServer(ctx context.Context) error
}

// Action is a scheduled task action.
type Action interface{ isAction() }

type (
	// Refresh reloads the task list and shows progress.
	Refresh struct{}
	// BackgroundRefresh reloads the list without touching the state; the
	// view sends it on a timer to follow task progress.
	BackgroundRefresh struct{}
	// Start runs a task now.
	Start struct{ ID string }
	// Stop cancels a running task.
	Stop struct{ ID string }
	// RestartServer restarts the server process.
	RestartServer struct{}
	// ShutdownServer stops the server process.
	ShutdownServer struct{}
)

func (Refresh) isAction()           {}
func (BackgroundRefresh) isAction() {}
func (Start) isAction()             {}
func (Stop) isAction()              {}
func (RestartServer) isAction()     {}
func (ShutdownServer) isAction()    {}

// Event is a one-shot task event.
type Event interface{ isEvent() }

type (
	Started          struct{ ID string }
	Stopped          struct{ ID string }
	ServerRestarting struct{}
	ServerStopping   struct{}
	Failed           struct{ Err *controller.Error }
)

func (Started) isEvent()          {}
func (Stopped) isEvent()          {}
func (ServerRestarting) isEvent() {}
func (ServerStopping) isEvent()   {}
func (Failed) isEvent()           {}

// Category groups tasks for display.
type Category struct {
	Name  string
	Tasks []jellyfin.TaskInfo
}

// Manager lists and drives the server's scheduled tasks.
type Manager struct {
	*controller.Controller[Action, Event]

	api API

	mu    sync.RWMutex
	tasks []jellyfin.TaskInfo
}

// New builds a task manager.
func New(api API) *Manager {
	m := &Manager{api: api}
	m.Controller = controller.New[Action, Event](m.handle, controller.Options[Event]{
		Name:    "tasks",
		OnError: func(err *controller.Error) Event { return Failed{Err: err} },
	})
	return m
}

// Tasks returns the loaded tasks.
func (m *Manager) Tasks() []jellyfin.TaskInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tasks)
}

// Categories returns the tasks grouped by category, both sorted by name.
func (m *Manager) Categories() []Category {
	m.mu.RLock()
	defer m.mu.RUnlock()

	index := make(map[string]int)
	var out []Category
	for _, task := range m.tasks {
		i, ok := index[task.Category]
		if !ok {
			i = len(out)
			index[task.Category] = i
			out = append(out, Category{Name: task.Category})
		}
		out[i].Tasks = append(out[i].Tasks, task)
	}
	slices.SortFunc(out, func(a, b Category) int { return cmp.Compare(a.Name, b.Name) })
	for i := range out {
		slices.SortFunc(out[i].Tasks, func(a, b jellyfin.TaskInfo) int { return cmp.Compare(a.Name, b.Name) })
	}
	return out
}

func (m *Manager) handle(_ controller.State, action Action) controller.Step[Event] {
	switch a := action.(type) {
	case Refresh:
		return controller.Step[Event]{
			Marker:     MarkerRefreshing,
			Concurrent: true,
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				return m.reload(ctx, controller.Content())
			},
		}
	case BackgroundRefresh:
		return controller.Step[Event]{
			Marker:     MarkerBackgroundRefreshing,
			Concurrent: true,
			Task: func(ctx context.Context) (controller.Result[Event], error) {
				return m.reload(ctx, controller.State{})
			},
		}
	case Start:
		return m.command(fmt.Sprintf("start task %s", a.ID), Started{ID: a.ID}, func(ctx context.Context) error {
			return m.api.StartTask(ctx, a.ID)
		})
	case Stop:
		return m.command(fmt.Sprintf("stop task %s", a.ID), Stopped{ID: a.ID}, func(ctx context.Context) error {
			return m.api.StopTask(ctx, a.ID)
		})
	case RestartServer:
		return m.serverCommand("restart server", ServerRestarting{}, m.api.RestartServer)
	case ShutdownServer:
		return m.serverCommand("shut down server", ServerStopping{}, m.api.ShutdownServer)
	}
	return controller.Keep[Event]()
}

// command runs call and reloads the list so task state is current.
func (m *Manager) command(what string, done Event, call func(context.Context) error) controller.Step[Event] {
	return controller.Step[Event]{
		Task: func(ctx context.Context) (controller.Result[Event], error) {
			if err := call(ctx); err != nil {
				return controller.Result[Event]{}, fmt.Errorf("%s: %w", what, err)
			}
			res, err := m.reload(ctx, controller.Content())
			if err != nil {
				return controller.Result[Event]{}, err
			}
			res.Events = append(res.Events, done)
			return res, nil
		},
	}
}

// serverCommand skips the reload: the server is going away.
func (m *Manager) serverCommand(what string, done Event, call func(context.Context) error) controller.Step[Event] {
	return controller.Step[Event]{
		Task: func(ctx context.Context) (controller.Result[Event], error) {
			if err := call(ctx); err != nil {
				return controller.Result[Event]{}, fmt.Errorf("%s: %w", what, err)
			}
			return controller.Result[Event]{Events: []Event{done}}, nil
		},
	}
}

func (m *Manager) reload(ctx context.Context, next controller.State) (controller.Result[Event], error) {
	tasks, err := m.api.GetScheduledTasks(ctx)
	if err != nil {
		return controller.Result[Event]{}, fmt.Errorf("load tasks: %w", err)
	}
	tasks = slices.DeleteFunc(tasks, func(t jellyfin.TaskInfo) bool { return t.IsHidden })
	return controller.Result[Event]{
		State: next,
		Apply: func() {
			m.mu.Lock()
			m.tasks = tasks
			m.mu.Unlock()
		},
	}, nil
}
