package overlay

import "fmt"

// ASSDrawing renders the rectangle as an ASS vector drawing event for a
// CanvasWidth x CanvasHeight script resolution. ASS alpha counts transparency,
// so it is the inverse of the ARGB alpha byte.
func ASSDrawing(r Rect, argb uint32) string {
	alpha := 0xFF - uint8(argb>>24) //nolint:mnd
	red := uint8(argb >> 16)        //nolint:mnd
	green := uint8(argb >> 8)       //nolint:mnd
	blue := uint8(argb)

	return fmt.Sprintf(
		`{\an7\pos(0,0)\bord0\shad0\1c&H%02X%02X%02X&\1a&H%02X&\p1}m %d %d l %d %d l %d %d l %d %d{\p0}`,
		blue, green, red,
		alpha,
		r.X, r.Y,
		r.X+r.W, r.Y,
		r.X+r.W, r.Y+r.H,
		r.X, r.Y+r.H,
	)
}
