package appsettings

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tvplayer/tvplayer/internal/overlay"
)

// OverlayRecordVersion is the schema version written by EncodeOverlay.
const OverlayRecordVersion = 1

// ErrOverlayVersionUnsupported is returned for records written by a newer release.
var ErrOverlayVersionUnsupported = errors.New("overlay settings version not supported")

type overlayRecord struct {
	Version int             `json:"version"`
	Config  json.RawMessage `json:"config"`
}

// legacyOverlay is the unversioned flat record. Color was stored as a signed
// 32 bit ARGB integer.
type legacyOverlay struct {
	Enabled   *bool  `json:"enabled"`
	Color     *int64 `json:"color"`
	Width     *int   `json:"width"`
	Height    *int   `json:"height"`
	PositionX *int   `json:"positionX"`
	PositionY *int   `json:"positionY"`
	Opacity   *int   `json:"opacity"`
}

// EncodeOverlay wraps cfg in a versioned record.
func EncodeOverlay(cfg overlay.Config) ([]byte, error) {
	inner, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "encoding overlay config")
	}

	out, err := json.Marshal(overlayRecord{Version: OverlayRecordVersion, Config: inner})

	return out, errors.Wrap(err, "encoding overlay record")
}

// DecodeOverlay reads a versioned record, or a legacy flat one. Fields missing
// from the record keep their defaults.
func DecodeOverlay(data []byte) (overlay.Config, error) {
	var probe struct {
		Version *int            `json:"version"`
		Config  json.RawMessage `json:"config"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return overlay.DefaultConfig(), errors.Wrap(err, "decoding overlay record")
	}

	if probe.Version == nil || *probe.Version == 0 {
		return decodeLegacyOverlay(data)
	}

	if *probe.Version > OverlayRecordVersion {
		return overlay.DefaultConfig(), errors.Wrapf(ErrOverlayVersionUnsupported, "version %d", *probe.Version)
	}

	cfg := overlay.DefaultConfig()
	if len(probe.Config) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(probe.Config, &cfg); err != nil {
		return overlay.DefaultConfig(), errors.Wrap(err, "decoding overlay config")
	}

	if cfg.Anchor == "" {
		cfg.Anchor = overlay.AnchorCenter
	}

	return cfg, nil
}

func decodeLegacyOverlay(data []byte) (overlay.Config, error) {
	var legacy legacyOverlay

	cfg := overlay.DefaultConfig()

	if err := json.Unmarshal(data, &legacy); err != nil {
		return cfg, errors.Wrap(err, "decoding legacy overlay record")
	}

	if legacy.Enabled != nil {
		cfg.Enabled = *legacy.Enabled
	}

	if legacy.Color != nil {
		cfg.Color = uint32(*legacy.Color) //nolint:gosec
	}

	setInt(&cfg.Width, legacy.Width)
	setInt(&cfg.Height, legacy.Height)
	setInt(&cfg.PositionX, legacy.PositionX)
	setInt(&cfg.PositionY, legacy.PositionY)
	setInt(&cfg.Opacity, legacy.Opacity)

	return cfg, nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
