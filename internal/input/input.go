// Package input names the remote-control keys the screens react to.
package input

import (
	"errors"
	"strings"
)

// ErrUnknownKey is returned by ParseKey for names it does not know.
var ErrUnknownKey = errors.New("unknown key")

// Key is a remote-control button.
type Key string

const (
	KeyLeft   Key = "left"
	KeyRight  Key = "right"
	KeyUp     Key = "up"
	KeyDown   Key = "down"
	KeyCenter Key = "center"
	KeyEnter  Key = "enter"
	KeyBack   Key = "back"
	KeyHome   Key = "home"
	KeyMenu   Key = "menu"
)

var aliases = map[string]Key{
	"dpad_left":   KeyLeft,
	"dpad_right":  KeyRight,
	"dpad_up":     KeyUp,
	"dpad_down":   KeyDown,
	"dpad_center": KeyCenter,
	"ok":          KeyCenter,
	"select":      KeyCenter,
	"return":      KeyEnter,
	"escape":      KeyBack,
	"esc":         KeyBack,
}

// ParseKey accepts key names case-insensitively, including the DPAD_* names.
func ParseKey(s string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "keycode_")

	switch k := Key(name); k {
	case KeyLeft, KeyRight, KeyUp, KeyDown, KeyCenter, KeyEnter, KeyBack, KeyHome, KeyMenu:
		return k, nil
	}

	if k, ok := aliases[name]; ok {
		return k, nil
	}

	return "", ErrUnknownKey
}

// IsConfirm reports whether k activates the focused item.
func (k Key) IsConfirm() bool {
	return k == KeyCenter || k == KeyEnter
}

// IsExit reports whether k leaves the current screen.
func (k Key) IsExit() bool {
	return k == KeyBack || k == KeyHome
}

// Event is a key press. Repeat counts auto-repeat events of a held key; 0 is the first press.
type Event struct {
	Key    Key
	Repeat int
}
