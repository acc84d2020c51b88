// Package settings is the preferences screen: a set of transient fields the
// user steps through with the remote and saves as a whole.
package settings

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

const (
	positionStep = 10
	widthStep    = 10
	heightStep   = 5
	opacityStep  = 10

	minWidth  = 10
	minHeight = 5
)

// ErrUnknownControl is returned for a control name the editor does not have.
var ErrUnknownControl = errors.New("unknown settings control")

// Control names one adjustable field.
type Control string

const (
	ControlSeekBackward   Control = "seek-backward"
	ControlSeekForward    Control = "seek-forward"
	ControlOverlayEnabled Control = "overlay-enabled"
	ControlOverlayX       Control = "overlay-x"
	ControlOverlayY       Control = "overlay-y"
	ControlOverlayWidth   Control = "overlay-width"
	ControlOverlayHeight  Control = "overlay-height"
	ControlOpacity        Control = "opacity"
	ControlColor          Control = "color"
	ControlShowFileSize   Control = "show-file-size"
	ControlShowDuration   Control = "show-duration"
	ControlScanExternal   Control = "scan-external"
	ControlViewMode       Control = "view-mode"
)

// Controls lists every control in screen order.
var Controls = []Control{ //nolint:gochecknoglobals
	ControlSeekBackward,
	ControlSeekForward,
	ControlOverlayEnabled,
	ControlOverlayX,
	ControlOverlayY,
	ControlOverlayWidth,
	ControlOverlayHeight,
	ControlOpacity,
	ControlColor,
	ControlShowFileSize,
	ControlShowDuration,
	ControlScanExternal,
	ControlViewMode,
}

// ParseControl looks a control up by name.
func ParseControl(s string) (Control, error) {
	c := Control(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Controls {
		if c == known {
			return c, nil
		}
	}

	return "", ErrUnknownControl
}

// Swatch is one entry of the colour palette.
type Swatch struct {
	Name string
	ARGB uint32
}

// Palette is the colour cycle of the overlay.
var Palette = []Swatch{ //nolint:gochecknoglobals
	{Name: "Black", ARGB: 0xFF000000},
	{Name: "Red", ARGB: 0xFFFF0000},
	{Name: "Green", ARGB: 0xFF00FF00},
	{Name: "Blue", ARGB: 0xFF0000FF},
	{Name: "White", ARGB: 0xFFFFFFFF},
}

// Saver persists the settings.
type Saver interface {
	Save(ctx context.Context, s appsettings.AppSettings) error
}

// Editor holds the fields while the screen is open. Methods are safe for concurrent use.
type Editor struct {
	mu       sync.Mutex
	fields   appsettings.AppSettings
	color    int
	dirty    bool
	validate *validator.Validate
}

// NewEditor starts editing a copy of current.
func NewEditor(current appsettings.AppSettings) *Editor {
	e := &Editor{
		fields:   current,
		validate: validator.New(),
	}
	e.color = paletteIndex(current.Overlay.Color)

	return e
}

// Settings returns the fields as they currently stand.
func (e *Editor) Settings() appsettings.AppSettings {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.fields
}

// ColorName is the palette name of the overlay colour, or "Custom".
func (e *Editor) ColorName() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.color < 0 {
		return "Custom"
	}

	return Palette[e.color].Name
}

// Dirty reports whether a field changed since the last save.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.dirty
}

// Adjust steps control up (step > 0) or down (step < 0). Toggles and the colour
// cycle ignore the sign.
func (e *Editor) Adjust(control Control, step int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := &e.fields
	o := &f.Overlay
	up := step >= 0

	switch control {
	case ControlSeekBackward:
		f.SeekBackwardSeconds = appsettings.ClampSeekSeconds(f.SeekBackwardSeconds + sign(up))
	case ControlSeekForward:
		f.SeekForwardSeconds = appsettings.ClampSeekSeconds(f.SeekForwardSeconds + sign(up))
	case ControlOverlayEnabled:
		o.Enabled = !o.Enabled
	case ControlOverlayX:
		o.PositionX = bound(o.PositionX+sign(up)*positionStep, 0, overlay.CanvasWidth)
	case ControlOverlayY:
		o.PositionY = bound(o.PositionY+sign(up)*positionStep, 0, overlay.CanvasHeight)
	case ControlOverlayWidth:
		o.Width = bound(o.Width+sign(up)*widthStep, minWidth, overlay.CanvasWidth)
	case ControlOverlayHeight:
		o.Height = bound(o.Height+sign(up)*heightStep, minHeight, overlay.CanvasHeight)
	case ControlOpacity:
		o.Opacity = overlay.ClampOpacity(o.Opacity + sign(up)*opacityStep)
	case ControlColor:
		e.color = (e.color + 1) % len(Palette)
		o.Color = Palette[e.color].ARGB
	case ControlShowFileSize:
		f.ShowFileSize = !f.ShowFileSize
	case ControlShowDuration:
		f.ShowDuration = !f.ShowDuration
	case ControlScanExternal:
		f.ScanExternalStorage = !f.ScanExternalStorage
	case ControlViewMode:
		if f.ViewMode == appsettings.ViewList {
			f.ViewMode = appsettings.ViewGrid
		} else {
			f.ViewMode = appsettings.ViewList
		}
	default:
		return ErrUnknownControl
	}

	e.dirty = true

	return nil
}

// SetDirectoryFilter replaces the directory filter text.
func (e *Editor) SetDirectoryFilter(filter string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.fields.DirectoryFilter = filter
	e.dirty = true
}

// Replace takes over a complete set of fields, e.g. from a submitted form, after validating it.
func (e *Editor) Replace(s appsettings.AppSettings) error {
	if err := e.validate.Struct(s); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.fields = s
	e.color = paletteIndex(s.Overlay.Color)
	e.dirty = true

	return nil
}

// Save validates and persists the fields.
func (e *Editor) Save(ctx context.Context, saver Saver) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validate.Struct(e.fields); err != nil {
		return err
	}

	if err := saver.Save(ctx, e.fields); err != nil {
		return err
	}

	e.dirty = false

	return nil
}

func paletteIndex(argb uint32) int {
	for i, sw := range Palette {
		if sw.ARGB&0x00FFFFFF == argb&0x00FFFFFF {
			return i
		}
	}

	return -1
}

func sign(up bool) int {
	if up {
		return 1
	}

	return -1
}

func bound(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
