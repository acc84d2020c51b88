// Package overlay manages the single auxiliary rectangle drawn over the video.
package overlay

const (
	// CanvasWidth is the width of the reference canvas overlay geometry is expressed in.
	CanvasWidth = 3840
	// CanvasHeight is the height of the reference canvas.
	CanvasHeight = 2160

	// Centered is the position sentinel resolved through Anchor.
	Centered = -1
)

// Anchor decides where a negative (sentinel) position puts the overlay.
type Anchor string

const (
	// AnchorCenter centres the overlay on the axis whose position is negative.
	AnchorCenter Anchor = "center"
	// AnchorBottomLeft pins the overlay to the left edge and the bottom edge.
	AnchorBottomLeft Anchor = "bottom-left"
)

// Config is the persisted overlay styling. Color is 0xAARRGGBB; the alpha byte is
// replaced by the one derived from Opacity when the overlay is drawn.
type Config struct {
	Enabled   bool   `json:"enabled"`
	Color     uint32 `json:"color"`
	Width     int    `json:"width"               validate:"min=1,max=3840"`
	Height    int    `json:"height"              validate:"min=1,max=2160"`
	PositionX int    `json:"positionX"           validate:"min=-1,max=3840"`
	PositionY int    `json:"positionY"           validate:"min=-1,max=2160"`
	Opacity   int    `json:"opacity"             validate:"min=0,max=100"`
	Anchor    Anchor `json:"anchor,omitempty"    validate:"omitempty,oneof=center bottom-left"`
}

// DefaultConfig is a black full-opacity bar near the bottom of the picture.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Color:     0xFF000000,
		Width:     1400,
		Height:    55,
		PositionX: 380,
		PositionY: 940,
		Opacity:   100,
		Anchor:    AnchorCenter,
	}
}

// Rect is a rectangle in canvas coordinates.
type Rect struct {
	X, Y, W, H int
}

// ClampOpacity bounds an opacity percentage to 0..100.
func ClampOpacity(opacity int) int {
	return clamp(opacity, 0, 100) //nolint:mnd
}

// Alpha converts an opacity percentage into an 8 bit alpha channel.
func Alpha(opacity int) uint8 {
	return uint8(ClampOpacity(opacity) * 255 / 100) //nolint:gosec,mnd
}

// ARGB returns the colour with the alpha channel taken from the opacity.
func (c Config) ARGB() uint32 {
	return uint32(Alpha(c.Opacity))<<24 | c.Color&0x00FFFFFF
}

// Rect resolves size and position inside the reference canvas.
func (c Config) Rect() Rect {
	w := clamp(c.Width, 1, CanvasWidth)
	h := clamp(c.Height, 1, CanvasHeight)

	x, y := c.PositionX, c.PositionY

	anchor := c.Anchor
	if anchor == "" {
		anchor = AnchorCenter
	}

	if x < 0 {
		switch anchor {
		case AnchorBottomLeft:
			x = 0
		default:
			x = (CanvasWidth - w) / 2 //nolint:mnd
		}
	}

	if y < 0 {
		switch anchor {
		case AnchorBottomLeft:
			y = CanvasHeight - h
		default:
			y = (CanvasHeight - h) / 2 //nolint:mnd
		}
	}

	return Rect{X: x, Y: y, W: w, H: h}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
