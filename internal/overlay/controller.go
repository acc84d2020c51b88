package overlay

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ID is the overlay slot used on the surface. The player draws exactly one rectangle.
const ID = 1

// ErrNoSurface is returned when an overlay operation needs a surface and none was given.
var ErrNoSurface = errors.New("overlay: no surface")

// Surface is anything that can draw or clear a rectangle above the video.
type Surface interface {
	DrawOverlay(id int, r Rect, argb uint32) error
	ClearOverlay(id int) error
}

// Controller owns the overlay state: attached to a surface or not, visible or not.
// All methods are safe for concurrent use.
type Controller struct {
	mu       sync.Mutex
	surface  Surface
	rect     Rect
	argb     uint32
	attached bool
	visible  bool
}

// NewController returns a detached, hidden overlay.
func NewController() *Controller {
	return &Controller{}
}

// Create replaces any previous overlay with a hidden one built from cfg.
func (c *Controller) Create(surface Surface, cfg Config) error {
	if surface == nil {
		return ErrNoSurface
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.detach()

	c.surface = surface
	c.rect = cfg.Rect()
	c.argb = cfg.ARGB()
	c.attached = true
	c.visible = false

	return surface.ClearOverlay(ID)
}

// Show makes the overlay visible. Without an attached overlay only the flag changes.
func (c *Controller) Show() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visible = true

	if !c.attached {
		return nil
	}

	return c.surface.DrawOverlay(ID, c.rect, c.argb)
}

// Hide makes the overlay invisible.
func (c *Controller) Hide() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.visible = false

	if !c.attached {
		return nil
	}

	return c.surface.ClearOverlay(ID)
}

// Toggle flips visibility and returns the new state.
func (c *Controller) Toggle() (bool, error) {
	if c.Visible() {
		return false, c.Hide()
	}

	return true, c.Show()
}

// Update recreates the overlay from cfg and restores the previous visibility.
func (c *Controller) Update(surface Surface, cfg Config) error {
	wasVisible := c.Visible()

	if err := c.Create(surface, cfg); err != nil {
		return err
	}

	if wasVisible {
		return c.Show()
	}

	return nil
}

// Remove detaches the overlay from the surface. It is a no-op when nothing is attached.
func (c *Controller) Remove() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detach()
	c.visible = false
}

// Visible reports the visibility flag.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.visible
}

// Attached reports whether an overlay exists on a surface.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attached
}

// Rect returns the resolved geometry of the attached overlay.
func (c *Controller) Rect() Rect {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rect
}

func (c *Controller) detach() {
	if !c.attached {
		return
	}

	if err := c.surface.ClearOverlay(ID); err != nil {
		log.Debug().Err(err).Msg("clearing overlay on detach")
	}

	c.surface = nil
	c.attached = false
}
