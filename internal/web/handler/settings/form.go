package settings

import (
	"fmt"
	"strconv"

	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

// Form is the submitted settings screen, as form fields or as JSON.
type Form struct {
	SeekBackwardSeconds int    `json:"seekBackwardSeconds" form:"seekBackwardSeconds" validate:"min=1,max=60"`
	SeekForwardSeconds  int    `json:"seekForwardSeconds"  form:"seekForwardSeconds"  validate:"min=1,max=60"`
	OverlayEnabled      bool   `json:"overlayEnabled"      form:"overlayEnabled"`
	OverlayX            int    `json:"overlayX"            form:"overlayX"            validate:"min=-1,max=3840"`
	OverlayY            int    `json:"overlayY"            form:"overlayY"            validate:"min=-1,max=2160"`
	OverlayWidth        int    `json:"overlayWidth"        form:"overlayWidth"        validate:"min=1,max=3840"`
	OverlayHeight       int    `json:"overlayHeight"       form:"overlayHeight"       validate:"min=1,max=2160"`
	OverlayOpacity      int    `json:"overlayOpacity"      form:"overlayOpacity"      validate:"min=0,max=100"`
	OverlayColor        string `json:"overlayColor"        form:"overlayColor"        validate:"required,hexcolor,len=7"`
	OverlayAnchor       string `json:"overlayAnchor"       form:"overlayAnchor"       validate:"omitempty,oneof=center bottom-left"`
	ViewMode            string `json:"viewMode"            form:"viewMode"            validate:"oneof=GRID LIST"`
	DefaultDirectory    string `json:"defaultDirectory"    form:"defaultDirectory"`
	ShowFileSize        bool   `json:"showFileSize"        form:"showFileSize"`
	ShowDuration        bool   `json:"showDuration"        form:"showDuration"`
	ScanExternalStorage bool   `json:"scanExternalStorage" form:"scanExternalStorage"`
	DirectoryFilter     string `json:"directoryFilter"     form:"directoryFilter"     validate:"max=256"`
}

// FormFrom fills a form with s.
func FormFrom(s appsettings.AppSettings) Form {
	return Form{
		SeekBackwardSeconds: s.SeekBackwardSeconds,
		SeekForwardSeconds:  s.SeekForwardSeconds,
		OverlayEnabled:      s.Overlay.Enabled,
		OverlayX:            s.Overlay.PositionX,
		OverlayY:            s.Overlay.PositionY,
		OverlayWidth:        s.Overlay.Width,
		OverlayHeight:       s.Overlay.Height,
		OverlayOpacity:      s.Overlay.Opacity,
		OverlayColor:        ColorHex(s.Overlay.Color),
		OverlayAnchor:       string(s.Overlay.Anchor),
		ViewMode:            string(s.ViewMode),
		DefaultDirectory:    s.DefaultDirectory,
		ShowFileSize:        s.ShowFileSize,
		ShowDuration:        s.ShowDuration,
		ScanExternalStorage: s.ScanExternalStorage,
		DirectoryFilter:     s.DirectoryFilter,
	}
}

// Apply returns the settings described by the form. The form must be valid.
func (f Form) Apply() (appsettings.AppSettings, error) {
	rgb, err := strconv.ParseUint(f.OverlayColor[1:], 16, 32)
	if err != nil {
		return appsettings.AppSettings{}, fmt.Errorf("overlay colour %q: %w", f.OverlayColor, err)
	}

	anchor := overlay.Anchor(f.OverlayAnchor)
	if anchor == "" {
		anchor = overlay.AnchorCenter
	}

	return appsettings.AppSettings{
		SeekBackwardSeconds: f.SeekBackwardSeconds,
		SeekForwardSeconds:  f.SeekForwardSeconds,
		Overlay: overlay.Config{
			Enabled:   f.OverlayEnabled,
			Color:     0xFF000000 | uint32(rgb),
			Width:     f.OverlayWidth,
			Height:    f.OverlayHeight,
			PositionX: f.OverlayX,
			PositionY: f.OverlayY,
			Opacity:   f.OverlayOpacity,
			Anchor:    anchor,
		},
		ViewMode:            appsettings.ViewMode(f.ViewMode),
		DefaultDirectory:    f.DefaultDirectory,
		ShowFileSize:        f.ShowFileSize,
		ShowDuration:        f.ShowDuration,
		ScanExternalStorage: f.ScanExternalStorage,
		DirectoryFilter:     f.DirectoryFilter,
	}, nil
}

// ColorHex renders the RGB part of an ARGB colour as #RRGGBB.
func ColorHex(argb uint32) string {
	return fmt.Sprintf("#%06X", argb&0xFFFFFF)
}
