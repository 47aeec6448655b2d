package tasks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
)

type fakeAPI struct {
	mu       sync.Mutex
	tasks    []jellyfin.TaskInfo
	calls    []string
	startErr error
}

func (f *fakeAPI) GetScheduledTasks(context.Context) ([]jellyfin.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tasks), nil
}

func (f *fakeAPI) setState(id, state string) {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].State = state
		}
	}
}

func (f *fakeAPI) StartTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start "+id)
	if f.startErr != nil {
		return f.startErr
	}
	f.setState(id, jellyfin.TaskRunning)
	return nil
}

func (f *fakeAPI) StopTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop "+id)
	f.setState(id, jellyfin.TaskIdle)
	return nil
}

func (f *fakeAPI) RestartServer(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "restart")
	return nil
}

func (f *fakeAPI) ShutdownServer(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "shutdown")
	return nil
}

func newAPI() *fakeAPI {
	return &fakeAPI{tasks: []jellyfin.TaskInfo{
		{ID: "scan", Name: "Scan Media Library", Category: "Library", State: jellyfin.TaskIdle},
		{ID: "logs", Name: "Clean Log Directory", Category: "Maintenance", State: jellyfin.TaskIdle},
		{ID: "chapters", Name: "Extract Chapter Images", Category: "Library", State: jellyfin.TaskIdle},
		{ID: "hidden", Name: "Internal", Category: "Maintenance", IsHidden: true},
	}}
}

func run(t *testing.T, m *Manager, action Action) controller.State {
	t.Helper()
	m.Respond(action)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := m.Await(ctx)
	require.NoError(t, err)
	return s
}

func TestRefreshGroupsByCategory(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := New(newAPI())
	assert.Equal(t, controller.Content(), run(t, m, Refresh{}))
	assert.Len(t, m.Tasks(), 3)

	cats := m.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, "Library", cats[0].Name)
	assert.Equal(t, "Extract Chapter Images", cats[0].Tasks[0].Name)
	assert.Equal(t, "Maintenance", cats[1].Name)
	assert.Len(t, cats[1].Tasks, 1)
	m.Close()
}

func TestStartAndStopReload(t *testing.T) {
	api := newAPI()
	m := New(api)
	t.Cleanup(m.Close)

	run(t, m, Refresh{})
	run(t, m, Start{ID: "scan"})
	assert.Equal(t, Started{ID: "scan"}, <-m.Events())
	idx := slices.IndexFunc(m.Tasks(), func(t jellyfin.TaskInfo) bool { return t.ID == "scan" })
	assert.True(t, m.Tasks()[idx].Running())

	run(t, m, Stop{ID: "scan"})
	assert.Equal(t, Stopped{ID: "scan"}, <-m.Events())
	assert.False(t, m.Tasks()[idx].Running())
	assert.Equal(t, []string{"start scan", "stop scan"}, api.calls)
}

func TestStartFailure(t *testing.T) {
	api := newAPI()
	api.startErr = errors.New("task already running")
	m := New(api)
	t.Cleanup(m.Close)

	s := run(t, m, Start{ID: "scan"})
	require.True(t, s.Is(controller.PhaseError))
	assert.Equal(t, "start task scan: task already running", s.Err.Message)
	assert.IsType(t, Failed{}, <-m.Events())
}

func TestBackgroundRefreshKeepsState(t *testing.T) {
	m := New(newAPI())
	t.Cleanup(m.Close)

	assert.Equal(t, controller.Initial(), run(t, m, BackgroundRefresh{}))
	assert.Len(t, m.Tasks(), 3)
	assert.Empty(t, m.Background())
}

func TestServerCommands(t *testing.T) {
	api := newAPI()
	m := New(api)
	t.Cleanup(m.Close)

	run(t, m, RestartServer{})
	assert.Equal(t, ServerRestarting{}, <-m.Events())
	run(t, m, ShutdownServer{})
	assert.Equal(t, ServerStopping{}, <-m.Events())
	assert.Equal(t, []string{"restart", "shutdown"}, api.calls)
}
