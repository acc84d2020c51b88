// Package media lists playable files and directories and probes their metadata.
package media

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrPermissionDenied is returned by CheckAccess when a directory cannot be read.
var ErrPermissionDenied = errors.New("permission denied")

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".webm": {},
	".flv":  {},
}

// VideoFile is one entry of a listing. Directories have size 0 and no duration.
type VideoFile struct {
	Path         string         `json:"path"`
	Name         string         `json:"name"`
	Title        string         `json:"title,omitempty"`
	Size         int64          `json:"size"`
	Duration     *time.Duration `json:"duration,omitempty"`
	LastModified time.Time      `json:"lastModified"`
	IsDirectory  bool           `json:"isDirectory"`
	IsParent     bool           `json:"isParent,omitempty"`
}

// IsVideo reports whether name has one of the supported video extensions.
func IsVideo(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// CheckAccess reports ErrPermissionDenied when dir exists but cannot be read.
func CheckAccess(dir string) error {
	f, err := os.Open(dir) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return ErrPermissionDenied
		}

		return nil
	}

	_ = f.Close()

	return nil
}

// Lister reads directories. Probing and tag reading are best-effort.
type Lister struct {
	prober   Prober
	readTags bool
	log      zerolog.Logger
}

// Option configures a Lister.
type Option func(*Lister)

// WithProber sets the duration prober. Without one no durations are reported.
func WithProber(p Prober) Option {
	return func(l *Lister) { l.prober = p }
}

// WithoutTags disables reading embedded titles.
func WithoutTags() Option {
	return func(l *Lister) { l.readTags = false }
}

// NewLister returns a Lister.
func NewLister(opts ...Option) *Lister {
	l := &Lister{
		readTags: true,
		log:      log.With().Str("component", "lister").Logger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// List returns the sub-directories and video files of dir: directories first,
// then files, each sorted case-insensitively by name. A missing path or a path
// that is not a directory yields an empty result.
func (l *Lister) List(ctx context.Context, dir string) []VideoFile {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return []VideoFile{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		l.log.Debug().Err(err).Str("dir", dir).Msg("reading directory")
		return []VideoFile{}
	}

	dirs := make([]VideoFile, 0, len(entries))
	files := make([]VideoFile, 0, len(entries))

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		path := filepath.Join(dir, entry.Name())

		fi, err := entry.Info()
		if err != nil {
			continue
		}

		if entry.IsDir() {
			dirs = append(dirs, VideoFile{
				Path:         path,
				Name:         entry.Name(),
				LastModified: fi.ModTime(),
				IsDirectory:  true,
			})

			continue
		}

		if !fi.Mode().IsRegular() || !IsVideo(entry.Name()) {
			continue
		}

		files = append(files, l.describe(ctx, path, fi))
	}

	sortByName(dirs)
	sortByName(files)

	return append(dirs, files...)
}

func (l *Lister) describe(ctx context.Context, path string, fi fs.FileInfo) VideoFile {
	vf := VideoFile{
		Path:         path,
		Name:         fi.Name(),
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
	}

	if l.prober != nil {
		d, err := l.prober.Probe(ctx, path)
		if err != nil {
			l.log.Debug().Err(err).Str("file", path).Msg("probing duration")
		} else {
			vf.Duration = &d
		}
	}

	if l.readTags {
		vf.Title = readTitle(path)
	}

	return vf
}

func readTitle(path string) string {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(m.Title())
}

func sortByName(files []VideoFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})
}
