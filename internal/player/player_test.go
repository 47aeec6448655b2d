package player

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/five82/usher/internal/controller"
	"github.com/five82/usher/internal/jellyfin"
)

var movie = jellyfin.Item{ID: "m1", Name: "Heat", RunTimeTicks: 200 * jellyfin.TicksPerSecond}

func resolved() PlaybackItem {
	return PlaybackItem{Item: movie, MediaSource: jellyfin.MediaSource{ID: "src"}, StreamURL: "http://media/stream"}
}

func awaitIdle(t *testing.T, m *Manager) controller.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := m.Await(ctx)
	require.NoError(t, err)
	return s
}

func TestNewResolvesPlaybackItem(t *testing.T) {
	defer goleak.VerifyNone(t)

	gate := make(chan struct{})
	m := New(movie, func(ctx context.Context) (PlaybackItem, error) {
		<-gate
		return resolved(), nil
	})
	assert.Equal(t, controller.Busy(PhaseLoadingItem), m.State())
	_, ok := m.PlaybackItem()
	assert.False(t, ok)

	close(gate)
	assert.Equal(t, controller.Busy(PhaseBuffering), awaitIdle(t, m))
	assert.Equal(t, StartPlayback{Item: resolved()}, <-m.Events())
	pi, ok := m.PlaybackItem()
	require.True(t, ok)
	assert.Equal(t, "src", pi.MediaSource.ID)
	m.Close()
}

func TestNewProviderFailure(t *testing.T) {
	m := New(movie, func(context.Context) (PlaybackItem, error) {
		return PlaybackItem{}, errors.New("no compatible stream")
	})
	t.Cleanup(m.Close)

	s := awaitIdle(t, m)
	require.True(t, s.Is(controller.PhaseError))
	assert.Equal(t, "resolve playback item: no compatible stream", s.Err.Message)
	assert.IsType(t, Failed{}, <-m.Events())
}

func TestActionsDuringResolveDropLateResult(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   controller.State
	}{
		{"fail", Fail{Err: &controller.Error{Message: "engine exploded"}}, controller.Failed(&controller.Error{Message: "engine exploded"})},
		{"pause", Pause{}, controller.Busy(PhasePaused)},
		{"play", Play{}, controller.Busy(PhasePlaying)},
		{"seek", Seek{Seconds: 20}, controller.Busy(PhaseLoadingItem)},
		{"set speed", SetSpeed{Speed: SpeedDouble}, controller.Busy(PhaseLoadingItem)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			gate := make(chan struct{})
			m := New(movie, func(ctx context.Context) (PlaybackItem, error) {
				// Ignores cancellation so the result arrives late.
				<-gate
				return resolved(), nil
			})

			assert.Equal(t, tt.want, m.Respond(tt.action))
			close(gate)
			assert.Equal(t, tt.want, awaitIdle(t, m))

			_, ok := m.PlaybackItem()
			assert.False(t, ok)
			m.Close()
			for ev := range m.Events() {
				assert.NotEqual(t, StartPlayback{Item: resolved()}, ev)
			}
		})
	}
}

func TestCancelledResolveIsNotAnError(t *testing.T) {
	m := New(movie, func(ctx context.Context) (PlaybackItem, error) {
		<-ctx.Done()
		return PlaybackItem{}, ctx.Err()
	})
	t.Cleanup(m.Close)

	m.Respond(Pause{})
	assert.Equal(t, controller.Busy(PhasePaused), awaitIdle(t, m))
	assert.Empty(t, m.Events())
}

func TestNewWithPlaybackItem(t *testing.T) {
	m := NewWithPlaybackItem(resolved())
	t.Cleanup(m.Close)

	assert.Equal(t, controller.Busy(PhaseBuffering), m.State())
	assert.Equal(t, []jellyfin.Item{movie}, m.Queue())
	assert.Equal(t, SpeedNormal, m.Speed())
}

func TestTransportTransitions(t *testing.T) {
	m := NewWithPlaybackItem(resolved())
	t.Cleanup(m.Close)

	tests := []struct {
		action Action
		want   controller.State
	}{
		{Play{}, controller.Busy(PhasePlaying)},
		{Pause{}, controller.Busy(PhasePaused)},
		{Buffer{}, controller.Busy(PhaseBuffering)},
		{Play{}, controller.Busy(PhasePlaying)},
		{Seek{Seconds: 50}, controller.Busy(PhasePlaying)},
		{Ended{}, controller.Busy(PhaseLoadingItem)},
		{PlayNew{Item: jellyfin.Item{ID: "m2"}}, controller.Busy(PhaseBuffering)},
		{Fail{Err: &controller.Error{Message: "decoder crashed"}}, controller.Failed(&controller.Error{Message: "decoder crashed"})},
		{Play{}, controller.Busy(PhasePlaying)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Respond(tt.action), "%T", tt.action)
	}
	assert.Len(t, m.Queue(), 2)
}

func TestSeekRecomputesProgress(t *testing.T) {
	m := NewWithPlaybackItem(resolved())
	t.Cleanup(m.Close)

	m.Respond(Seek{Seconds: 50})
	assert.Equal(t, Progress{Fraction: 0.25, Seconds: 50}, m.Progress())

	m.Respond(Seek{Seconds: 500})
	assert.Equal(t, Progress{Fraction: 1, Seconds: 500}, m.Progress())

	unknown := NewWithPlaybackItem(PlaybackItem{Item: jellyfin.Item{ID: "live"}})
	t.Cleanup(unknown.Close)
	unknown.Respond(Seek{Seconds: 30})
	assert.Equal(t, Progress{Seconds: 30}, unknown.Progress())
}

func TestSetSpeedIgnoresUnsupported(t *testing.T) {
	m := NewWithPlaybackItem(resolved())
	t.Cleanup(m.Close)

	m.Respond(SetSpeed{Speed: SpeedOneHalf})
	assert.Equal(t, SpeedOneHalf, m.Speed())
	m.Respond(SetSpeed{Speed: 3})
	assert.Equal(t, SpeedOneHalf, m.Speed())
	assert.Equal(t, "1.5x", m.Speed().String())
}

func TestStopIsFinal(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := New(movie, func(ctx context.Context) (PlaybackItem, error) {
		<-ctx.Done()
		return PlaybackItem{}, ctx.Err()
	})

	assert.Equal(t, controller.Busy(PhaseStopped), m.Respond(Stop{}))
	for _, action := range []Action{Play{}, Stop{}, PlayNew{Item: movie}, Seek{Seconds: 10}} {
		assert.Equal(t, controller.Busy(PhaseStopped), m.Respond(action))
	}
	assert.Equal(t, controller.Busy(PhaseStopped), awaitIdle(t, m))
	assert.Empty(t, m.Queue())

	m.Close()
	var stopped int
	for ev := range m.Events() {
		if _, ok := ev.(PlaybackStopped); ok {
			stopped++
		}
	}
	assert.Equal(t, 1, stopped)
}

type fakePlayback struct {
	info jellyfin.PlaybackInfo
	err  error
}

func (f fakePlayback) GetPlaybackInfo(context.Context, string) (jellyfin.PlaybackInfo, error) {
	return f.info, f.err
}

func (f fakePlayback) StreamURL(itemID string, source jellyfin.MediaSource, session string) *url.URL {
	return &url.URL{Scheme: "http", Host: "media", Path: "/Videos/" + itemID + "/stream", RawQuery: "MediaSourceId=" + source.ID + "&PlaySessionId=" + session}
}

func TestServerProvider(t *testing.T) {
	api := fakePlayback{info: jellyfin.PlaybackInfo{
		MediaSources:  []jellyfin.MediaSource{{ID: "a"}, {ID: "b"}},
		PlaySessionID: "ps",
	}}
	pi, err := ServerProvider(api, movie)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", pi.MediaSource.ID)
	assert.Equal(t, "http://media/Videos/m1/stream?MediaSourceId=a&PlaySessionId=ps", pi.StreamURL)

	_, err = ServerProvider(fakePlayback{}, movie)(context.Background())
	assert.EqualError(t, err, "item has no playable media source")
}
