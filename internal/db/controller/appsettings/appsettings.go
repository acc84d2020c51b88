// Package appsettings maps the user preferences onto the named settings table.
package appsettings

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tvplayer/tvplayer/internal/db/controller/setting"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

// Setting keys.
const (
	KeySeekBackwardSeconds = "seek_backward_seconds"
	KeySeekForwardSeconds  = "seek_forward_seconds"
	KeyOverlayConfig       = "overlay_config"
	KeyViewMode            = "view_mode"
	KeyDefaultDirectory    = "default_directory"
	KeyShowFileSize        = "show_file_size"
	KeyShowDuration        = "show_duration"
	KeyScanExternalStorage = "scan_external_storage"
	KeyDirectoryFilter     = "directory_filter"
	KeyLastDirectory       = "last_directory"
)

const (
	// MinSeekSeconds and MaxSeekSeconds bound the seek step.
	MinSeekSeconds = 1
	MaxSeekSeconds = 60

	defaultSeekSeconds = 5
)

// ViewMode selects how the browser lays out entries.
type ViewMode string

const (
	ViewGrid ViewMode = "GRID"
	ViewList ViewMode = "LIST"
)

// ParseViewMode accepts either mode case-insensitively; anything else is GRID.
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ViewList)) {
		return ViewList
	}

	return ViewGrid
}

// AppSettings is the complete set of user preferences.
type AppSettings struct {
	SeekBackwardSeconds int            `json:"seekBackwardSeconds" validate:"min=1,max=60"`
	SeekForwardSeconds  int            `json:"seekForwardSeconds"  validate:"min=1,max=60"`
	Overlay             overlay.Config `json:"overlay"`
	ViewMode            ViewMode       `json:"viewMode"            validate:"oneof=GRID LIST"`
	DefaultDirectory    string         `json:"defaultDirectory"`
	ShowFileSize        bool           `json:"showFileSize"`
	ShowDuration        bool           `json:"showDuration"`
	ScanExternalStorage bool           `json:"scanExternalStorage"`
	DirectoryFilter     string         `json:"directoryFilter"`
}

// Defaults returns the preferences used for every missing key.
func Defaults(defaultDirectory string) AppSettings {
	return AppSettings{
		SeekBackwardSeconds: defaultSeekSeconds,
		SeekForwardSeconds:  defaultSeekSeconds,
		Overlay:             overlay.DefaultConfig(),
		ViewMode:            ViewGrid,
		DefaultDirectory:    defaultDirectory,
		ShowFileSize:        true,
		ShowDuration:        true,
		ScanExternalStorage: true,
	}
}

// ClampSeekSeconds bounds a seek step to MinSeekSeconds..MaxSeekSeconds.
func ClampSeekSeconds(v int) int {
	return max(MinSeekSeconds, min(MaxSeekSeconds, v))
}

// Store loads and saves AppSettings. DefaultDirectory is used when none was saved.
type Store struct {
	db               *gorm.DB
	defaultDirectory string
}

var preferenceKeys = []string{
	KeySeekBackwardSeconds,
	KeySeekForwardSeconds,
	KeyOverlayConfig,
	KeyViewMode,
	KeyDefaultDirectory,
	KeyShowFileSize,
	KeyShowDuration,
	KeyScanExternalStorage,
	KeyDirectoryFilter,
}

// NewStore returns a Store on db.
func NewStore(db *gorm.DB, defaultDirectory string) *Store {
	return &Store{db: db, defaultDirectory: defaultDirectory}
}

// Load reads every key, falling back to the default of each key that is
// missing or unreadable. Only database failures are returned; the defaults
// are returned alongside them.
func (s *Store) Load(ctx context.Context) (AppSettings, error) {
	out := Defaults(s.defaultDirectory)

	if s.db == nil {
		return out, setting.ErrDBNil
	}

	values, err := setting.GetAll(s.db.WithContext(ctx))
	if err != nil {
		return out, errors.Wrap(err, "loading settings")
	}

	out.SeekBackwardSeconds = intValue(values, KeySeekBackwardSeconds, out.SeekBackwardSeconds)
	out.SeekForwardSeconds = intValue(values, KeySeekForwardSeconds, out.SeekForwardSeconds)
	out.ShowFileSize = boolValue(values, KeyShowFileSize, out.ShowFileSize)
	out.ShowDuration = boolValue(values, KeyShowDuration, out.ShowDuration)
	out.ScanExternalStorage = boolValue(values, KeyScanExternalStorage, out.ScanExternalStorage)

	if v, ok := values[KeyViewMode]; ok {
		out.ViewMode = ParseViewMode(string(v))
	}

	if v, ok := values[KeyDefaultDirectory]; ok && len(v) > 0 {
		out.DefaultDirectory = string(v)
	}

	if v, ok := values[KeyDirectoryFilter]; ok {
		out.DirectoryFilter = string(v)
	}

	if v, ok := values[KeyOverlayConfig]; ok && len(v) > 0 {
		cfg, err := DecodeOverlay(v)
		if err != nil {
			log.Warn().Err(err).Msg("overlay settings unreadable, using defaults")
		} else {
			out.Overlay = cfg
		}
	}

	return out, nil
}

// Save overwrites every key in one transaction.
func (s *Store) Save(ctx context.Context, in AppSettings) error {
	if s.db == nil {
		return setting.ErrDBNil
	}

	overlayValue, err := EncodeOverlay(in.Overlay)
	if err != nil {
		return err
	}

	values := map[string][]byte{
		KeySeekBackwardSeconds: []byte(strconv.Itoa(in.SeekBackwardSeconds)),
		KeySeekForwardSeconds:  []byte(strconv.Itoa(in.SeekForwardSeconds)),
		KeyOverlayConfig:       overlayValue,
		KeyViewMode:            []byte(ParseViewMode(string(in.ViewMode))),
		KeyDefaultDirectory:    []byte(in.DefaultDirectory),
		KeyShowFileSize:        []byte(strconv.FormatBool(in.ShowFileSize)),
		KeyShowDuration:        []byte(strconv.FormatBool(in.ShowDuration)),
		KeyScanExternalStorage: []byte(strconv.FormatBool(in.ScanExternalStorage)),
		KeyDirectoryFilter:     []byte(in.DirectoryFilter),
	}

	return errors.Wrap(setting.SetMany(s.db.WithContext(ctx), values), "saving settings")
}

// Reset removes every stored preference so the next Load returns the
// defaults. The remembered directory is kept.
func (s *Store) Reset(ctx context.Context) error {
	if s.db == nil {
		return setting.ErrDBNil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range preferenceKeys {
			if err := setting.DeleteByName(tx, key); err != nil && !errors.Is(err, setting.ErrSettingNotFound) {
				return err
			}
		}

		return nil
	})

	return errors.Wrap(err, "resetting settings")
}

// LastDirectory returns the directory the browser showed last, or "" when none was saved.
func (s *Store) LastDirectory(ctx context.Context) string {
	if s.db == nil {
		return ""
	}

	row, err := setting.Get(s.db.WithContext(ctx), KeyLastDirectory)
	if err != nil {
		if !errors.Is(err, setting.ErrSettingNotFound) {
			log.Debug().Err(err).Msg("reading last directory")
		}

		return ""
	}

	return string(row.Value)
}

// SaveLastDirectory remembers the directory the browser shows.
func (s *Store) SaveLastDirectory(ctx context.Context, path string) error {
	if s.db == nil {
		return setting.ErrDBNil
	}

	_, err := setting.Set(s.db.WithContext(ctx), KeyLastDirectory, []byte(path))

	return errors.Wrap(err, "saving last directory")
}

func intValue(values map[string][]byte, key string, fallback int) int {
	v, ok := values[key]
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(v)))
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("setting is not a number")
		return fallback
	}

	return n
}

func boolValue(values map[string][]byte, key string, fallback bool) bool {
	v, ok := values[key]
	if !ok {
		return fallback
	}

	b, err := strconv.ParseBool(strings.TrimSpace(string(v)))
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("setting is not a boolean")
		return fallback
	}

	return b
}
