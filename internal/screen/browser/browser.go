// Package browser is the directory browsing screen: where the user is, how they
// got there and what is listed.
package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/media"
)

// ParentEntryName labels the pseudo entry leading one level up.
const ParentEntryName = ".. [Go Back]"

var (
	// ErrExit is returned by Back when there is nowhere left to go: the screen closes.
	ErrExit = errors.New("browser: exit")
	// ErrNotListed is returned by Open for a path that is not in the current listing.
	ErrNotListed = errors.New("browser: entry not in listing")
	// ErrOutsideRoot is returned when a path lies outside the library root.
	ErrOutsideRoot = errors.New("browser: path outside library root")
	// ErrNotDirectory is returned by SwitchRoot for a path that is not a directory.
	ErrNotDirectory = errors.New("browser: not a directory")
)

// Lister lists a directory.
type Lister interface {
	List(ctx context.Context, dir string) []media.VideoFile
}

// SettingsStore provides the filter and remembers the last directory.
type SettingsStore interface {
	Load(ctx context.Context) (appsettings.AppSettings, error)
	LastDirectory(ctx context.Context) string
	SaveLastDirectory(ctx context.Context, path string) error
}

// ActionKind tells the caller what opening an entry led to.
type ActionKind int

const (
	// ActionList means the browser moved into a directory and reloaded.
	ActionList ActionKind = iota
	// ActionPlay means a file was chosen; the caller starts the player with Path.
	ActionPlay
)

// Action is the outcome of Open.
type Action struct {
	Kind ActionKind
	Path string
}

// Listing is what the screen shows.
type Listing struct {
	Path     string                  `json:"path"`
	Root     string                  `json:"root"`
	AtRoot   bool                    `json:"atRoot"`
	Entries  []media.VideoFile       `json:"entries"`
	Settings appsettings.AppSettings `json:"settings"`
}

// Browser holds the navigation state. Methods are safe for concurrent use.
type Browser struct {
	mu       sync.Mutex
	lister   Lister
	settings SettingsStore
	library  string
	root     string
	mode     string
	current  string
	history  []string
	listing  Listing
	log      zerolog.Logger
}

// New positions the browser on the saved last directory when it still exists
// below root, otherwise on root. An empty mode means parent navigation.
func New(ctx context.Context, lister Lister, settings SettingsStore, root, mode string) *Browser {
	if mode == "" {
		mode = config.BrowseModeParent
	}

	root = filepath.Clean(root)

	b := &Browser{
		lister:   lister,
		settings: settings,
		library:  root,
		root:     root,
		mode:     mode,
		current:  root,
		log:      log.With().Str("component", "browser").Logger(),
	}

	if last := settings.LastDirectory(ctx); last != "" {
		last = filepath.Clean(last)
		if isDir(last) && b.inRoot(last) {
			b.current = last
		}
	}

	return b
}

// Root returns the top of the browsable tree: the library root or the storage
// location chosen with SwitchRoot.
func (b *Browser) Root() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.root
}

// Library returns the configured library root.
func (b *Browser) Library() string {
	return b.library
}

// SwitchRoot makes dir, typically a storage location, the top of the browsable
// tree and shows it. The navigation history starts over.
func (b *Browser) SwitchRoot(ctx context.Context, dir string) error {
	dir = filepath.Clean(dir)
	if !isDir(dir) {
		return ErrNotDirectory
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.root = dir
	b.current = dir
	b.history = nil

	_, err := b.reload(ctx)

	return err
}

// Current returns the directory shown.
func (b *Browser) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// Listing returns the result of the last reload.
func (b *Browser) Listing() Listing {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.listing
}

// Reload lists the current directory, filters it, and remembers it as the last directory.
func (b *Browser) Reload(ctx context.Context) (Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.reload(ctx)
}

// Open acts on an entry of the current listing: a directory is entered, a file is returned for playback.
func (b *Browser) Open(ctx context.Context, path string) (Action, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path = filepath.Clean(path)

	var entry *media.VideoFile

	for i := range b.listing.Entries {
		if filepath.Clean(b.listing.Entries[i].Path) == path {
			entry = &b.listing.Entries[i]
			break
		}
	}

	if entry == nil {
		return Action{}, ErrNotListed
	}

	if !entry.IsDirectory {
		return Action{Kind: ActionPlay, Path: entry.Path}, nil
	}

	if !b.inRoot(path) {
		return Action{}, ErrOutsideRoot
	}

	if !entry.IsParent && b.mode == config.BrowseModeHistory {
		b.history = append(b.history, b.current)
	}

	b.current = path

	if _, err := b.reload(ctx); err != nil {
		return Action{Kind: ActionList, Path: path}, err
	}

	return Action{Kind: ActionList, Path: path}, nil
}

// Back goes to the previous directory (history mode) or the parent (parent mode).
// It returns ErrExit when the screen should close instead.
func (b *Browser) Back(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.mode {
	case config.BrowseModeHistory:
		if len(b.history) == 0 {
			return ErrExit
		}

		b.current = b.history[len(b.history)-1]
		b.history = b.history[:len(b.history)-1]
	default:
		if b.current == b.root {
			return ErrExit
		}

		parent := filepath.Dir(b.current)
		if !b.inRoot(parent) {
			parent = b.root
		}

		b.current = parent
	}

	_, err := b.reload(ctx)

	return err
}

// Jump moves to dir directly, e.g. a storage location. History mode records the move.
func (b *Browser) Jump(ctx context.Context, dir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir = filepath.Clean(dir)
	if !b.inRoot(dir) {
		return ErrOutsideRoot
	}

	if b.mode == config.BrowseModeHistory && dir != b.current {
		b.history = append(b.history, b.current)
	}

	b.current = dir

	_, err := b.reload(ctx)

	return err
}

func (b *Browser) reload(ctx context.Context) (Listing, error) {
	settings, err := b.settings.Load(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("loading settings, using defaults")
	}

	if err := media.CheckAccess(b.current); err != nil {
		b.listing = Listing{Path: b.current, Root: b.root, AtRoot: b.current == b.root, Settings: settings}
		return b.listing, err
	}

	entries := FilterEntries(b.lister.List(ctx, b.current), settings.DirectoryFilter)

	if b.mode != config.BrowseModeHistory && b.current != b.root {
		parent := media.VideoFile{
			Path:        filepath.Dir(b.current),
			Name:        ParentEntryName,
			IsDirectory: true,
			IsParent:    true,
		}
		entries = append([]media.VideoFile{parent}, entries...)
	}

	if err := b.settings.SaveLastDirectory(ctx, b.current); err != nil {
		b.log.Warn().Err(err).Str("dir", b.current).Msg("saving last directory")
	}

	b.listing = Listing{
		Path:     b.current,
		Root:     b.root,
		AtRoot:   b.current == b.root,
		Entries:  entries,
		Settings: settings,
	}

	return b.listing, nil
}

// Contains reports whether path lies inside the library root or the current root.
func (b *Browser) Contains(path string) bool {
	path = filepath.Clean(path)

	b.mu.Lock()
	defer b.mu.Unlock()

	return within(b.library, path) || b.inRoot(path)
}

func (b *Browser) inRoot(path string) bool {
	return within(b.root, path)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// FilterEntries keeps the directories whose name contains any of the
// whitespace-separated terms of filter, case-insensitively. Files always pass,
// and a blank filter keeps everything.
func FilterEntries(entries []media.VideoFile, filter string) []media.VideoFile {
	terms := strings.Fields(strings.ToLower(filter))
	if len(terms) == 0 {
		return entries
	}

	out := make([]media.VideoFile, 0, len(entries))

	for _, e := range entries {
		if !e.IsDirectory || e.IsParent || matchesAny(strings.ToLower(e.Name), terms) {
			out = append(out, e)
		}
	}

	return out
}

func matchesAny(name string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(name, t) {
			return true
		}
	}

	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
