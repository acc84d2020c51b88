// Package screen owns the screens of the player: the browser, at most one
// playback session and the settings editor.
package screen

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
	"github.com/tvplayer/tvplayer/internal/engine"
	"github.com/tvplayer/tvplayer/internal/overlay"
	"github.com/tvplayer/tvplayer/internal/screen/browser"
	"github.com/tvplayer/tvplayer/internal/screen/player"
	"github.com/tvplayer/tvplayer/internal/screen/settings"
)

// ErrNoPlayer is returned when no playback session is running.
var ErrNoPlayer = errors.New("no playback session")

// Deps are the collaborators of the hub.
type Deps struct {
	Browser   *browser.Browser
	Settings  *appsettings.Store
	Positions *playback.Store
	Engine    engine.Factory
	Timing    player.Timing
}

// Hub switches between screens. The zero value is not usable; use NewHub.
type Hub struct {
	deps    Deps
	overlay *overlay.Controller
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// playMu serialises switching sessions so at most one runs.
	playMu sync.Mutex

	mu      sync.Mutex
	session *player.Session
	editor  *settings.Editor
}

// NewHub returns a hub whose sessions live at most as long as ctx.
func NewHub(ctx context.Context, deps Deps) *Hub {
	ctx, cancel := context.WithCancel(ctx)

	return &Hub{
		deps:    deps,
		overlay: overlay.NewController(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Browser returns the browser screen.
func (h *Hub) Browser() *browser.Browser {
	return h.deps.Browser
}

// Settings returns the settings store.
func (h *Hub) Settings() *appsettings.Store {
	return h.deps.Settings
}

// Positions returns the position store.
func (h *Hub) Positions() *playback.Store {
	return h.deps.Positions
}

// Play closes any running session and starts a new one on path.
func (h *Hub) Play(ctx context.Context, path string) (*player.Session, error) {
	h.playMu.Lock()
	defer h.playMu.Unlock()

	h.closePlayer()

	current, err := h.deps.Settings.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("loading settings for playback, using defaults")
	}

	s, err := player.New(player.Options{
		FilePath: path,
		Settings: current,
		Store:    h.deps.Positions,
		Engine:   h.deps.Engine,
		Overlay:  h.overlay,
		Timing:   h.deps.Timing,
	})
	if err != nil {
		return nil, err
	}

	h.wg.Add(1)

	go func() {
		defer h.wg.Done()

		if err := s.Run(h.ctx); err != nil {
			log.Error().Err(err).Str("session", s.ID()).Msg("player session failed")
		}
	}()

	h.mu.Lock()
	h.session = s
	h.mu.Unlock()

	return s, nil
}

// Player returns the running session.
func (h *Hub) Player() (*player.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session == nil {
		return nil, ErrNoPlayer
	}

	select {
	case <-h.session.Done():
		return nil, ErrNoPlayer
	default:
	}

	return h.session, nil
}

// LastSession returns the most recent session, running or not.
func (h *Hub) LastSession() *player.Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.session
}

// ClosePlayer destroys the running session, if any, and waits for it.
func (h *Hub) ClosePlayer() {
	h.playMu.Lock()
	defer h.playMu.Unlock()

	h.closePlayer()
}

func (h *Hub) closePlayer() {
	h.mu.Lock()
	s := h.session
	h.mu.Unlock()

	if s != nil {
		s.Close()
	}
}

// Editor returns the open settings editor, opening one on the stored settings when none is.
func (h *Hub) Editor(ctx context.Context) *settings.Editor {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.editor == nil {
		current, err := h.deps.Settings.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("loading settings for editing, using defaults")
		}

		h.editor = settings.NewEditor(current)
	}

	return h.editor
}

// SaveSettings persists the open editor, if any, and hands the result to the running session.
func (h *Hub) SaveSettings(ctx context.Context) error {
	h.mu.Lock()
	e := h.editor
	h.mu.Unlock()

	if e == nil {
		return nil
	}

	if err := e.Save(ctx, h.deps.Settings); err != nil {
		return err
	}

	s, err := h.Player()
	if err != nil {
		return nil //nolint:nilerr
	}

	if err := s.ApplySettings(e.Settings()); err != nil && !errors.Is(err, player.ErrClosed) {
		return err
	}

	return nil
}

// ResetSettings restores the default preferences, reopens the editor on
// them and restyles the running session.
func (h *Hub) ResetSettings(ctx context.Context) error {
	if err := h.deps.Settings.Reset(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.editor = nil
	h.mu.Unlock()

	e := h.Editor(ctx)

	s, err := h.Player()
	if err != nil {
		return nil //nolint:nilerr
	}

	if err := s.ApplySettings(e.Settings()); err != nil && !errors.Is(err, player.ErrClosed) {
		return err
	}

	return nil
}

// CloseSettings saves the open editor and closes it.
func (h *Hub) CloseSettings(ctx context.Context) error {
	if err := h.SaveSettings(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.editor = nil
	h.mu.Unlock()

	return nil
}

// Close destroys the running session and waits for every session goroutine.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
}
