package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
	"github.com/tvplayer/tvplayer/internal/db/dbtest"
	"github.com/tvplayer/tvplayer/internal/engine"
	"github.com/tvplayer/tvplayer/internal/input"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeEngine struct {
	mu       sync.Mutex
	loaded   string
	start    time.Duration
	position time.Duration
	duration time.Duration
	paused   bool
	seeks    []time.Duration
	drawn    bool
	closed   bool
	events   chan engine.Event
}

func newFakeEngine(position, duration time.Duration) *fakeEngine {
	return &fakeEngine{
		position: position,
		duration: duration,
		events:   make(chan engine.Event, 4),
	}
}

func (f *fakeEngine) Load(_ context.Context, path string, start time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loaded = path
	f.start = start
	f.position = start

	return nil
}

func (f *fakeEngine) Position(context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.position, nil
}

func (f *fakeEngine) Duration(context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.duration, nil
}

func (f *fakeEngine) Paused(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.paused, nil
}

func (f *fakeEngine) Play(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paused = false

	return nil
}

func (f *fakeEngine) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paused = true

	return nil
}

func (f *fakeEngine) Seek(_ context.Context, pos time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seeks = append(f.seeks, pos)
	f.position = pos

	return nil
}

func (f *fakeEngine) Events() <-chan engine.Event {
	return f.events
}

func (f *fakeEngine) DrawOverlay(int, overlay.Rect, uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.drawn = true

	return nil
}

func (f *fakeEngine) ClearOverlay(int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.drawn = false

	return nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeEngine) set(position time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.position = position
}

type engineState struct {
	loaded   string
	start    time.Duration
	position time.Duration
	paused   bool
	seeks    []time.Duration
	drawn    bool
	closed   bool
}

func (f *fakeEngine) snapshot() engineState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return engineState{
		loaded:   f.loaded,
		start:    f.start,
		position: f.position,
		paused:   f.paused,
		seeks:    append([]time.Duration(nil), f.seeks...),
		drawn:    f.drawn,
		closed:   f.closed,
	}
}

// fakeClock only moves when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type harness struct {
	t       *testing.T
	store   *playback.Store
	engine  *fakeEngine
	clock   *fakeClock
	session *Session
	file    string
	runErr  chan error
}

type harnessOption func(*Options)

func newHarness(t *testing.T, eng *fakeEngine, opts ...harnessOption) *harness {
	t.Helper()

	file := filepath.Join(t.TempDir(), "movie.mkv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	h := &harness{
		t:      t,
		store:  playback.NewStore(dbtest.Open(t)),
		engine: eng,
		clock:  &fakeClock{now: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)},
		file:   file,
		runErr: make(chan error, 1),
	}

	return h.withOptions(opts...)
}

func (h *harness) withOptions(opts ...harnessOption) *harness {
	h.t.Helper()

	o := Options{
		FilePath: h.file,
		Settings: appsettings.Defaults("/srv/media"),
		Store:    h.store,
		Engine: func(context.Context) (engine.Engine, error) {
			return h.engine, nil
		},
		Timing: Timing{
			CheckpointInterval: time.Hour,
			ResumeTimeout:      time.Hour,
		},
		Clock: h.clock.Now,
	}

	for _, opt := range opts {
		opt(&o)
	}

	s, err := New(o)
	require.NoError(h.t, err)

	h.session = s

	return h
}

func (h *harness) seed(positionMs, durationMs int64) {
	h.t.Helper()

	_, err := h.store.Upsert(context.Background(), h.file, positionMs, durationMs)
	require.NoError(h.t, err)
}

func (h *harness) run() {
	h.t.Helper()

	go func() { h.runErr <- h.session.Run(context.Background()) }()

	h.t.Cleanup(func() {
		select {
		case <-h.session.Done():
		default:
			h.session.Close()
		}
	})
}

func (h *harness) waitState(want State) {
	h.t.Helper()

	require.Eventually(h.t, func() bool {
		return h.session.Snapshot().State == want
	}, waitFor, tick, "waiting for state %s", want)
}

func (h *harness) press(key input.Key) {
	h.t.Helper()

	require.NoError(h.t, h.session.Press(input.Event{Key: key}))
}

func TestNewValidation(t *testing.T) {
	store := playback.NewStore(dbtest.Open(t))
	factory := func(context.Context) (engine.Engine, error) { return nil, nil }

	_, err := New(Options{FilePath: "  ", Store: store, Engine: factory})
	require.ErrorIs(t, err, ErrNoFilePath)

	_, err = New(Options{FilePath: filepath.Join(t.TempDir(), "gone.mkv"), Store: store, Engine: factory})
	require.ErrorIs(t, err, ErrFileNotFound)

	_, err = New(Options{FilePath: t.TempDir(), Store: store, Engine: factory})
	require.ErrorIs(t, err, ErrFileNotFound, "directories are not playable")

	file := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err = New(Options{FilePath: file})
	require.ErrorIs(t, err, ErrMissingDependency)
}

func TestStartsFromBeginningWithoutRecord(t *testing.T) {
	h := newHarness(t, newFakeEngine(0, 10*time.Minute))
	h.run()

	h.waitState(StatePlaying)

	got := h.engine.snapshot()
	assert.Equal(t, h.file, got.loaded)
	assert.Zero(t, got.start)
	assert.NotEmpty(t, h.session.ID())
}

func TestShortRecordDoesNotPrompt(t *testing.T) {
	h := newHarness(t, newFakeEngine(0, 10*time.Minute))
	h.seed(5000, 600_000)
	h.run()

	h.waitState(StatePlaying)
	assert.Zero(t, h.engine.snapshot().start, "positions up to 5 s are not offered")
}

func TestResumePrompt(t *testing.T) {
	tests := []struct {
		name      string
		resume    bool
		wantStart time.Duration
	}{
		{name: "resume", resume: true, wantStart: 60 * time.Second},
		{name: "start over", resume: false, wantStart: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, newFakeEngine(0, 10*time.Minute))
			h.seed(60_000, 600_000)
			h.run()

			h.waitState(StateAwaitingResume)

			snap := h.session.Snapshot()
			assert.Equal(t, 60*time.Second, snap.SavedPosition)
			assert.False(t, snap.ResumeDeadline.IsZero())
			assert.Empty(t, h.engine.snapshot().loaded, "nothing plays while the prompt is open")

			require.NoError(t, h.session.ChooseResume(tt.resume))
			h.waitState(StatePlaying)

			assert.Equal(t, tt.wantStart, h.engine.snapshot().start)
			require.ErrorIs(t, h.session.ChooseResume(true), ErrNoResumePending)
		})
	}
}

func TestResumePromptConfirmKey(t *testing.T) {
	h := newHarness(t, newFakeEngine(0, 10*time.Minute))
	h.seed(60_000, 600_000)
	h.run()

	h.waitState(StateAwaitingResume)
	h.press(input.KeyCenter)
	h.waitState(StatePlaying)

	assert.Equal(t, 60*time.Second, h.engine.snapshot().start)
}

func TestResumePromptTimesOut(t *testing.T) {
	h := newHarness(t, newFakeEngine(0, 10*time.Minute), func(o *Options) {
		o.Timing.ResumeTimeout = 20 * time.Millisecond
	})
	h.seed(90_000, 600_000)
	h.run()

	h.waitState(StatePlaying)
	assert.Equal(t, 90*time.Second, h.engine.snapshot().start)
}

func TestPeriodicCheckpoint(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng, func(o *Options) {
		o.Timing.CheckpointInterval = 10 * time.Millisecond
	})
	h.run()

	h.waitState(StatePlaying)
	eng.set(42 * time.Second)

	require.Eventually(t, func() bool {
		rec, err := h.store.Get(context.Background(), h.file)
		return err == nil && rec.PositionMs == 42_000 && rec.DurationMs == 600_000
	}, waitFor, tick)
}

func TestCheckpointSkippedWithoutDuration(t *testing.T) {
	h := newHarness(t, newFakeEngine(0, 0), func(o *Options) {
		o.Timing.CheckpointInterval = 5 * time.Millisecond
	})
	h.run()

	h.waitState(StatePlaying)
	h.engine.set(30 * time.Second)
	time.Sleep(50 * time.Millisecond)

	h.session.Close()

	_, err := h.store.Get(context.Background(), h.file)
	require.ErrorIs(t, err, playback.ErrRecordNotFound)
}

func TestSeek(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)

	eng.set(3 * time.Second)
	h.press(input.KeyLeft)
	assert.Equal(t, []time.Duration{0}, eng.snapshot().seeks, "clamped at the start")

	h.clock.Advance(time.Second)
	eng.set(598 * time.Second)
	h.press(input.KeyRight)
	assert.Equal(t, 10*time.Minute, eng.snapshot().position, "clamped at the end")

	h.clock.Advance(time.Second)
	eng.set(100 * time.Second)
	h.press(input.KeyRight)
	assert.Equal(t, 105*time.Second, eng.snapshot().position)
}

func TestSeekDebounceAndRepeat(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)

	eng.set(100 * time.Second)
	h.press(input.KeyRight)
	h.press(input.KeyRight)
	assert.Len(t, eng.snapshot().seeks, 1, "second press inside the debounce window is ignored")

	h.clock.Advance(499 * time.Millisecond)
	h.press(input.KeyRight)
	assert.Len(t, eng.snapshot().seeks, 1)

	h.clock.Advance(time.Millisecond)
	h.press(input.KeyRight)
	assert.Len(t, eng.snapshot().seeks, 2)

	h.clock.Advance(time.Second)
	require.NoError(t, h.session.Press(input.Event{Key: input.KeyLeft, Repeat: 3}))
	assert.Len(t, eng.snapshot().seeks, 2, "held keys do not seek")
}

func TestCustomSeekSteps(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng, func(o *Options) {
		o.Settings.SeekBackwardSeconds = 10
		o.Settings.SeekForwardSeconds = 30
	})
	h.run()
	h.waitState(StatePlaying)

	eng.set(100 * time.Second)
	h.press(input.KeyLeft)
	assert.Equal(t, 90*time.Second, eng.snapshot().position)

	h.clock.Advance(time.Second)
	h.press(input.KeyRight)
	assert.Equal(t, 120*time.Second, eng.snapshot().position)
}

func TestOverlayKeys(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)

	assert.False(t, h.session.Snapshot().OverlayVisible)

	h.press(input.KeyUp)
	assert.True(t, eng.snapshot().drawn)
	require.Eventually(t, func() bool { return h.session.Snapshot().OverlayVisible }, waitFor, tick)

	h.press(input.KeyDown)
	assert.False(t, eng.snapshot().drawn)

	h.press(input.KeyMenu)
	assert.True(t, eng.snapshot().drawn)

	h.press(input.KeyMenu)
	assert.False(t, eng.snapshot().drawn)
}

func TestOverlayDisabled(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng, func(o *Options) {
		o.Settings.Overlay.Enabled = false
	})
	h.run()
	h.waitState(StatePlaying)

	h.press(input.KeyUp)
	assert.False(t, eng.snapshot().drawn, "no overlay exists to draw")
}

func TestPlayPause(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)

	h.press(input.KeyCenter)
	h.waitState(StatePaused)
	assert.True(t, eng.snapshot().paused)

	h.press(input.KeyEnter)
	h.waitState(StatePlaying)
	assert.False(t, eng.snapshot().paused)

	eng.events <- engine.Event{Kind: engine.EventPaused}
	h.waitState(StatePaused)
}

func TestEndedCompleted(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.seed(3000, 600_000)
	h.run()
	h.waitState(StatePlaying)

	eng.set(590 * time.Second)
	eng.events <- engine.Event{Kind: engine.EventEnded}
	h.waitState(StateEnded)

	h.press(input.KeyBack)
	<-h.session.Done()

	_, err := h.store.Get(context.Background(), h.file)
	require.ErrorIs(t, err, playback.ErrRecordNotFound, "a finished file forgets its position")
}

func TestEndedNotCompleted(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)

	eng.set(300 * time.Second)
	eng.events <- engine.Event{Kind: engine.EventEnded}
	h.waitState(StateEnded)

	h.session.Close()

	rec, err := h.store.Get(context.Background(), h.file)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), rec.PositionMs)
}

func TestReplayAfterEnd(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)

	eng.set(600 * time.Second)
	eng.events <- engine.Event{Kind: engine.EventEnded}
	h.waitState(StateEnded)

	h.press(input.KeyCenter)
	h.waitState(StatePlaying)
	assert.Zero(t, eng.snapshot().position)
}

func TestBackWritesFinalCheckpointAndReleases(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)
	h.press(input.KeyUp)

	eng.set(123 * time.Second)
	h.press(input.KeyHome)

	select {
	case <-h.session.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not close")
	}

	require.NoError(t, <-h.runErr)
	assert.Equal(t, StateDestroyed, h.session.Snapshot().State)

	got := eng.snapshot()
	assert.True(t, got.closed, "engine released")
	assert.False(t, got.drawn, "overlay removed")

	rec, err := h.store.Get(context.Background(), h.file)
	require.NoError(t, err)
	assert.Equal(t, int64(123_000), rec.PositionMs)

	require.ErrorIs(t, h.session.Press(input.Event{Key: input.KeyLeft}), ErrClosed)
}

func TestCancelDestroys(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.runErr <- h.session.Run(ctx) }()

	h.waitState(StatePlaying)
	eng.set(45 * time.Second)
	cancel()

	require.NoError(t, <-h.runErr)

	rec, err := h.store.Get(context.Background(), h.file)
	require.NoError(t, err)
	assert.Equal(t, int64(45_000), rec.PositionMs)
}

func TestEngineFailure(t *testing.T) {
	boom := errors.New("mpv not installed")
	h := newHarness(t, nil)
	h.withOptions(func(o *Options) {
		o.Engine = func(context.Context) (engine.Engine, error) { return nil, boom }
	})

	err := h.session.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, h.session.Err(), boom)
	assert.Equal(t, StateDestroyed, h.session.Snapshot().State)
}

func TestEngineGone(t *testing.T) {
	eng := newFakeEngine(0, 10*time.Minute)
	h := newHarness(t, eng)
	h.run()
	h.waitState(StatePlaying)

	close(eng.events)

	require.ErrorIs(t, <-h.runErr, ErrEngineGone)
}

func TestClampSeek(t *testing.T) {
	assert.Equal(t, time.Duration(0), ClampSeek(-2*time.Second, time.Minute))
	assert.Equal(t, time.Minute, ClampSeek(2*time.Minute, time.Minute))
	assert.Equal(t, 2*time.Minute, ClampSeek(2*time.Minute, 0), "unknown duration only bounds below")
	assert.Equal(t, 30*time.Second, ClampSeek(30*time.Second, time.Minute))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-resume", StateAwaitingResume.String())
	assert.Equal(t, "unknown", State(42).String())

	text, err := StatePlaying.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "playing", string(text))
}
