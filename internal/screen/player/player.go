// Package player is the playback screen. A session owns one engine instance and
// runs every state change on a single event loop goroutine: key presses, the
// checkpoint ticker, the resume prompt timeout, engine notifications and the
// result of the resume lookup all arrive there as events.
package player

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
	"github.com/tvplayer/tvplayer/internal/db/models"
	"github.com/tvplayer/tvplayer/internal/engine"
	"github.com/tvplayer/tvplayer/internal/input"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

const (
	eventBuffer    = 16
	releaseTimeout = 3 * time.Second
)

var (
	// ErrNoFilePath is returned when a session is requested without a file.
	ErrNoFilePath = errors.New("no file path given")
	// ErrFileNotFound is returned when the file does not exist or is not a regular file.
	ErrFileNotFound = errors.New("file not found")
	// ErrClosed is returned by calls on a session that has ended.
	ErrClosed = errors.New("player session closed")
	// ErrNoResumePending is returned by ChooseResume outside the resume prompt.
	ErrNoResumePending = errors.New("no resume choice pending")
	// ErrEngineGone is returned by Run when the engine disappears under the session.
	ErrEngineGone = errors.New("playback engine went away")
	// ErrMissingDependency is returned by New when the store or the engine factory is nil.
	ErrMissingDependency = errors.New("player: store and engine factory are required")
)

// PositionStore reads and writes resume positions.
type PositionStore interface {
	playback.Backend
	Get(ctx context.Context, filePath string) (*models.PlaybackRecord, error)
}

// Timing holds the intervals of the session.
type Timing struct {
	CheckpointInterval time.Duration
	ResumeTimeout      time.Duration
	ResumeThreshold    time.Duration
	SeekDebounce       time.Duration
}

// DefaultTiming checkpoints every 5 s, offers resuming for positions past 5 s,
// resumes on its own after 10 s and ignores seeks closer than 500 ms apart.
func DefaultTiming() Timing {
	return Timing{
		CheckpointInterval: 5 * time.Second,
		ResumeTimeout:      10 * time.Second,
		ResumeThreshold:    5 * time.Second,
		SeekDebounce:       500 * time.Millisecond,
	}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()

	if t.CheckpointInterval <= 0 {
		t.CheckpointInterval = d.CheckpointInterval
	}

	if t.ResumeTimeout <= 0 {
		t.ResumeTimeout = d.ResumeTimeout
	}

	if t.ResumeThreshold <= 0 {
		t.ResumeThreshold = d.ResumeThreshold
	}

	if t.SeekDebounce <= 0 {
		t.SeekDebounce = d.SeekDebounce
	}

	return t
}

// Options configure a session.
type Options struct {
	FilePath string
	Settings appsettings.AppSettings
	Store    PositionStore
	Engine   engine.Factory
	// Overlay is created when nil.
	Overlay *overlay.Controller
	Timing  Timing
	// Clock defaults to time.Now; it only drives the seek debounce.
	Clock func() time.Time
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID             string        `json:"id"`
	FilePath       string        `json:"filePath"`
	State          State         `json:"state"`
	Position       time.Duration `json:"position"`
	Duration       time.Duration `json:"duration"`
	SavedPosition  time.Duration `json:"savedPosition"`
	ResumeDeadline time.Time     `json:"resumeDeadline"`
	OverlayVisible bool          `json:"overlayVisible"`
}

type keyPress struct {
	ev    input.Event
	reply chan error
}

type resumeChoice struct {
	resume bool
	reply  chan error
}

type resumeLoaded struct {
	record *models.PlaybackRecord
	err    error
}

type settingsUpdate struct {
	settings appsettings.AppSettings
	reply    chan error
}

type closeRequest struct{}

// Session is one visit of the player screen.
type Session struct {
	id       string
	path     string
	settings appsettings.AppSettings
	store    PositionStore
	factory  engine.Factory
	overlay  *overlay.Controller
	timing   Timing
	now      func() time.Time
	log      zerolog.Logger

	events chan any
	done   chan struct{}

	snapMu sync.Mutex
	snap   Snapshot
	err    error

	// Owned by the event loop.
	state       State
	eng         engine.Engine
	engEvents   <-chan engine.Event
	writer      *playback.Writer
	ticker      *time.Ticker
	resumeTimer *time.Timer
	saved       time.Duration
	deadline    time.Time
	lastSeek    time.Time
	completed   bool
	position    time.Duration
	duration    time.Duration
}

// New validates the options and prepares a session. Run starts it.
func New(opts Options) (*Session, error) {
	path := strings.TrimSpace(opts.FilePath)
	if path == "" {
		return nil, ErrNoFilePath
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ErrFileNotFound
	}

	if opts.Store == nil || opts.Engine == nil {
		return nil, ErrMissingDependency
	}

	ov := opts.Overlay
	if ov == nil {
		ov = overlay.NewController()
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	id := uuid.NewString()

	s := &Session{
		id:       id,
		path:     path,
		settings: opts.Settings,
		store:    opts.Store,
		factory:  opts.Engine,
		overlay:  ov,
		timing:   opts.Timing.withDefaults(),
		now:      clock,
		log:      log.With().Str("session", id).Str("file", path).Logger(),
		events:   make(chan any, eventBuffer),
		done:     make(chan struct{}),
		state:    StateInitializing,
	}

	s.publish()

	return s, nil
}

// ID identifies the session.
func (s *Session) ID() string {
	return s.id
}

// FilePath is the file being played.
func (s *Session) FilePath() string {
	return s.path
}

// Done is closed once the session was destroyed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why Run ended; nil for a normal exit.
func (s *Session) Err() error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	return s.err
}

// Snapshot returns the state published by the event loop.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	return s.snap
}

// Press delivers a key press to the session. The snapshot reflects the key once Press returns.
func (s *Session) Press(ev input.Event) error {
	reply := make(chan error, 1)
	if err := s.post(keyPress{ev: ev, reply: reply}); err != nil {
		return err
	}

	return s.await(reply)
}

// ChooseResume answers the resume prompt: true continues at the saved position, false starts over.
func (s *Session) ChooseResume(resume bool) error {
	reply := make(chan error, 1)
	if err := s.post(resumeChoice{resume: resume, reply: reply}); err != nil {
		return err
	}

	return s.await(reply)
}

// ApplySettings hands changed settings to the session. Seek steps follow them
// from the next key on and a running overlay is restyled in place.
func (s *Session) ApplySettings(settings appsettings.AppSettings) error {
	reply := make(chan error, 1)
	if err := s.post(settingsUpdate{settings: settings, reply: reply}); err != nil {
		return err
	}

	return s.await(reply)
}

// Close destroys the session and waits until it is gone. It requires Run to have been started.
func (s *Session) Close() {
	_ = s.post(closeRequest{})
	<-s.done
}

// Run executes the event loop until the session is destroyed. Cancelling ctx destroys the session.
func (s *Session) Run(ctx context.Context) error {
	activeSessions.Inc()
	defer activeSessions.Dec()

	err := s.loop(ctx)

	s.snapMu.Lock()
	s.err = err
	s.snapMu.Unlock()

	close(s.done)

	return err
}

func (s *Session) loop(ctx context.Context) error {
	s.writer = playback.NewWriter(s.store, 0)

	go s.lookup(ctx)

	for {
		select {
		case <-ctx.Done():
			s.destroy()
			return nil

		case ev := <-s.events:
			exit, err := s.handle(ctx, ev)
			if exit || err != nil {
				s.destroy()
				return err
			}

		case <-s.tickerC():
			s.checkpoint(ctx, false)

		case <-s.resumeC():
			s.log.Debug().Msg("resume prompt timed out, resuming")

			if err := s.resolveResume(ctx, true); err != nil {
				s.destroy()
				return err
			}

		case ev, ok := <-s.engEvents:
			if !ok {
				s.log.Warn().Msg("engine went away")
				s.engEvents = nil
				s.eng = nil
				s.destroy()

				return ErrEngineGone
			}

			s.onEngineEvent(ctx, ev)
		}

		s.publish()
	}
}

func (s *Session) lookup(ctx context.Context) {
	record, err := s.store.Get(ctx, s.path)
	_ = s.post(resumeLoaded{record: record, err: err})
}

func (s *Session) post(ev any) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) await(reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) tickerC() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}

	return s.ticker.C
}

func (s *Session) resumeC() <-chan time.Time {
	if s.resumeTimer == nil {
		return nil
	}

	return s.resumeTimer.C
}

// handle processes one posted event. exit asks the loop to destroy the session.
func (s *Session) handle(ctx context.Context, ev any) (bool, error) {
	switch e := ev.(type) {
	case closeRequest:
		return true, nil

	case resumeLoaded:
		return false, s.onResumeLoaded(ctx, e)

	case resumeChoice:
		if s.state != StateAwaitingResume {
			e.reply <- ErrNoResumePending
			return false, nil
		}

		err := s.resolveResume(ctx, e.resume)
		s.publish()
		e.reply <- err

		return false, err

	case settingsUpdate:
		s.applySettings(e.settings)
		s.publish()
		e.reply <- nil

		return false, nil

	case keyPress:
		exit, err := s.onKey(ctx, e.ev)
		s.publish()
		e.reply <- err

		return exit, err
	}

	return false, nil
}

func (s *Session) onResumeLoaded(ctx context.Context, e resumeLoaded) error {
	if s.state != StateInitializing {
		return nil
	}

	if e.err != nil && !errors.Is(e.err, playback.ErrRecordNotFound) {
		s.log.Warn().Err(e.err).Msg("reading resume position, starting from the beginning")
	}

	if e.record != nil && time.Duration(e.record.PositionMs)*time.Millisecond > s.timing.ResumeThreshold {
		s.saved = time.Duration(e.record.PositionMs) * time.Millisecond
		s.state = StateAwaitingResume
		s.deadline = s.now().Add(s.timing.ResumeTimeout)
		s.resumeTimer = time.NewTimer(s.timing.ResumeTimeout)

		s.log.Debug().Dur("saved", s.saved).Msg("offering to resume")

		return nil
	}

	return s.startPlayback(ctx, 0)
}

func (s *Session) resolveResume(ctx context.Context, resume bool) error {
	s.stopResumeTimer()

	start := time.Duration(0)
	if resume {
		start = s.saved
	}

	return s.startPlayback(ctx, start)
}

func (s *Session) startPlayback(ctx context.Context, start time.Duration) error {
	eng, err := s.factory(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("starting engine")
		return err
	}

	s.eng = eng
	s.engEvents = eng.Events()

	if err := eng.Load(ctx, s.path, start); err != nil {
		s.log.Error().Err(err).Msg("loading file")
		return err
	}

	s.position = start
	s.state = StatePlaying
	s.ticker = time.NewTicker(s.timing.CheckpointInterval)

	if s.settings.Overlay.Enabled {
		if err := s.overlay.Create(eng, s.settings.Overlay); err != nil {
			s.log.Warn().Err(err).Msg("creating overlay")
		}
	}

	s.log.Info().Dur("start", start).Msg("playback started")

	return nil
}

// onKey maps remote keys onto playback actions. Only first presses act;
// auto-repeats of a held key are swallowed.
func (s *Session) onKey(ctx context.Context, ev input.Event) (bool, error) {
	if ev.Key.IsExit() {
		return true, nil
	}

	if ev.Repeat > 0 {
		return false, nil
	}

	switch s.state {
	case StateAwaitingResume:
		if ev.Key.IsConfirm() {
			return false, s.resolveResume(ctx, true)
		}

		return false, nil

	case StatePlaying, StatePaused, StateEnded:
	default:
		return false, nil
	}

	switch ev.Key {
	case input.KeyLeft:
		if s.state != StateEnded {
			s.seek(ctx, false)
		}
	case input.KeyRight:
		if s.state != StateEnded {
			s.seek(ctx, true)
		}
	case input.KeyUp:
		s.logOverlay(s.overlay.Show())
	case input.KeyDown:
		s.logOverlay(s.overlay.Hide())
	case input.KeyMenu:
		_, err := s.overlay.Toggle()
		s.logOverlay(err)
	case input.KeyCenter, input.KeyEnter:
		if s.state == StateEnded {
			s.replay(ctx)
		} else {
			s.togglePause(ctx)
		}
	}

	return false, nil
}

// applySettings takes over new settings. Before playback starts the overlay is
// built from them by startPlayback.
func (s *Session) applySettings(settings appsettings.AppSettings) {
	s.settings = settings

	if s.eng == nil {
		return
	}

	switch {
	case !settings.Overlay.Enabled:
		s.overlay.Remove()
	case s.overlay.Attached():
		s.logOverlay(s.overlay.Update(s.eng, settings.Overlay))
	default:
		s.logOverlay(s.overlay.Create(s.eng, settings.Overlay))
	}
}

func (s *Session) logOverlay(err error) {
	if err != nil {
		s.log.Warn().Err(err).Msg("updating overlay")
	}
}

// ClampSeek bounds a seek target to [0, duration]; an unknown duration only bounds below.
func ClampSeek(target, duration time.Duration) time.Duration {
	if target < 0 {
		return 0
	}

	if duration > 0 && target > duration {
		return duration
	}

	return target
}

func (s *Session) seek(ctx context.Context, forward bool) {
	now := s.now()
	if !s.lastSeek.IsZero() && now.Sub(s.lastSeek) < s.timing.SeekDebounce {
		return
	}

	s.lastSeek = now

	pos, err := s.eng.Position(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("reading position for seek")
		return
	}

	dur, err := s.eng.Duration(ctx)
	if err != nil {
		dur = 0
	}

	step := time.Duration(s.settings.SeekBackwardSeconds) * time.Second
	direction := "backward"

	if forward {
		step = time.Duration(s.settings.SeekForwardSeconds) * time.Second
		direction = "forward"
	} else {
		step = -step
	}

	target := ClampSeek(pos+step, dur)

	if err := s.eng.Seek(ctx, target); err != nil {
		s.log.Warn().Err(err).Dur("target", target).Msg("seeking")
		return
	}

	seeksTotal.WithLabelValues(direction).Inc()

	s.position = target
	if dur > 0 {
		s.duration = dur
	}
}

func (s *Session) togglePause(ctx context.Context) {
	paused, err := s.eng.Paused(ctx)
	if err != nil {
		paused = s.state == StatePaused
	}

	if paused {
		err = s.eng.Play(ctx)
	} else {
		err = s.eng.Pause(ctx)
	}

	if err != nil {
		s.log.Warn().Err(err).Msg("toggling pause")
		return
	}

	if paused {
		s.state = StatePlaying
	} else {
		s.state = StatePaused
	}
}

func (s *Session) replay(ctx context.Context) {
	if err := s.eng.Seek(ctx, 0); err != nil {
		s.log.Warn().Err(err).Msg("rewinding")
		return
	}

	if err := s.eng.Play(ctx); err != nil {
		s.log.Warn().Err(err).Msg("restarting playback")
		return
	}

	s.completed = false
	s.position = 0
	s.state = StatePlaying
	s.ticker = time.NewTicker(s.timing.CheckpointInterval)
}

func (s *Session) onEngineEvent(ctx context.Context, ev engine.Event) {
	switch ev.Kind {
	case engine.EventEnded:
		s.onEnded(ctx)
	case engine.EventPaused:
		if s.state == StatePlaying {
			s.state = StatePaused
		}
	case engine.EventResumed:
		if s.state == StatePaused {
			s.state = StatePlaying
		}
	}
}

func (s *Session) onEnded(ctx context.Context) {
	if s.state == StateEnded {
		return
	}

	s.stopTicker()

	if pos, err := s.eng.Position(ctx); err == nil {
		s.position = pos
	}

	if dur, err := s.eng.Duration(ctx); err == nil && dur > 0 {
		s.duration = dur
	}

	s.state = StateEnded

	if playback.IsCompleted(s.position.Milliseconds(), s.duration.Milliseconds()) {
		s.completed = true
		s.writer.Forget(s.path)
		completedTotal.Inc()
		s.log.Info().Msg("playback completed, resume position dropped")

		return
	}

	s.checkpoint(ctx, false)
}

// checkpoint hands the current position to the writer. Nothing is written while
// the duration is unknown.
func (s *Session) checkpoint(ctx context.Context, final bool) {
	if s.eng == nil {
		return
	}

	pos, err := s.eng.Position(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("reading position for checkpoint")
		return
	}

	dur, err := s.eng.Duration(ctx)
	if err != nil || dur <= 0 {
		return
	}

	s.position = pos
	s.duration = dur

	if final {
		s.writer.FinalCheckpoint(s.path, pos.Milliseconds(), dur.Milliseconds())
	} else {
		s.writer.Checkpoint(s.path, pos.Milliseconds(), dur.Milliseconds())
	}

	checkpointsTotal.Inc()
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) stopResumeTimer() {
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}

	s.deadline = time.Time{}
}

// destroy cancels the scheduled work, writes the final position unless the file
// was completed, drains the writer and releases the overlay and the engine.
func (s *Session) destroy() {
	if s.state == StateDestroyed {
		return
	}

	s.stopTicker()
	s.stopResumeTimer()

	if s.eng != nil && !s.completed {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		s.checkpoint(ctx, true)
		cancel()
	}

	s.writer.Close()
	s.overlay.Remove()

	if s.eng != nil {
		if err := s.eng.Close(); err != nil {
			s.log.Warn().Err(err).Msg("releasing engine")
		}

		s.eng = nil
		s.engEvents = nil
	}

	s.state = StateDestroyed
	s.publish()

	s.log.Info().Dur("position", s.position).Msg("player closed")
}

func (s *Session) publish() {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	s.snap = Snapshot{
		ID:             s.id,
		FilePath:       s.path,
		State:          s.state,
		Position:       s.position,
		Duration:       s.duration,
		SavedPosition:  s.saved,
		ResumeDeadline: s.deadline,
		OverlayVisible: s.overlay.Visible(),
	}
}
