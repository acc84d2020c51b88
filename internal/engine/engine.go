// Package engine describes the media playback engine the player screen drives.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/tvplayer/tvplayer/internal/overlay"
)

var (
	// ErrClosed is returned by every call after the engine was released.
	ErrClosed = errors.New("engine closed")
	// ErrUnavailable is returned when a property has no value yet, e.g. before a file is loaded.
	ErrUnavailable = errors.New("property unavailable")
)

// EventKind enumerates engine notifications.
type EventKind int

const (
	// EventEnded fires when playback reached the end of the file.
	EventEnded EventKind = iota
	// EventPaused fires when playback was paused.
	EventPaused
	// EventResumed fires when playback continued.
	EventResumed
)

func (k EventKind) String() string {
	switch k {
	case EventEnded:
		return "ended"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	default:
		return "unknown"
	}
}

// Event is a notification from the engine.
type Event struct {
	Kind EventKind
}

// Engine plays one file at a time and draws the overlay on its video surface.
// The events channel is closed when the engine goes away.
type Engine interface {
	overlay.Surface

	Load(ctx context.Context, path string, start time.Duration) error
	Position(ctx context.Context) (time.Duration, error)
	Duration(ctx context.Context) (time.Duration, error)
	Paused(ctx context.Context) (bool, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, pos time.Duration) error
	Events() <-chan Event
	Close() error
}

// Factory starts an engine instance.
type Factory func(ctx context.Context) (Engine, error)
