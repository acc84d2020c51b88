// Package enginetest provides an engine that plays nothing, for tests of the layers above the player.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/tvplayer/tvplayer/internal/engine"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

// Idle reports a fixed position and duration and accepts every command.
type Idle struct {
	mu       sync.Mutex
	position time.Duration
	duration time.Duration
	paused   bool
	loaded   string
	events   chan engine.Event
}

// NewIdle returns an engine parked at position in a file of the given duration.
func NewIdle(position, duration time.Duration) *Idle {
	return &Idle{
		position: position,
		duration: duration,
		events:   make(chan engine.Event),
	}
}

// Factory starts a fresh Idle engine for every session.
func Factory(position, duration time.Duration) engine.Factory {
	return func(context.Context) (engine.Engine, error) {
		return NewIdle(position, duration), nil
	}
}

func (e *Idle) Load(_ context.Context, path string, _ time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loaded = path
	e.paused = false

	return nil
}

func (e *Idle) Position(context.Context) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.position, nil
}

func (e *Idle) Duration(context.Context) (time.Duration, error) {
	return e.duration, nil
}

func (e *Idle) Paused(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.paused, nil
}

func (e *Idle) Play(context.Context) error {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()

	return nil
}

func (e *Idle) Pause(context.Context) error {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()

	return nil
}

func (e *Idle) Seek(_ context.Context, pos time.Duration) error {
	e.mu.Lock()
	e.position = pos
	e.mu.Unlock()

	return nil
}

func (e *Idle) Events() <-chan engine.Event                 { return e.events }
func (e *Idle) DrawOverlay(int, overlay.Rect, uint32) error { return nil }
func (e *Idle) ClearOverlay(int) error                      { return nil }
func (e *Idle) Close() error                                { return nil }

// Loaded returns the path of the last Load.
func (e *Idle) Loaded() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loaded
}

var _ engine.Engine = (*Idle)(nil)
