// Package browse serves the directory browser and the storage location picker.
package browse

import (
	"errors"
	"path/filepath"
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/media"
	"github.com/tvplayer/tvplayer/internal/screen"
	"github.com/tvplayer/tvplayer/internal/screen/browser"
	"github.com/tvplayer/tvplayer/internal/screen/player"
	"github.com/tvplayer/tvplayer/internal/web/handler"
	"github.com/tvplayer/tvplayer/internal/web/navigation"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

const (
	// Path is the path of the browser screen.
	Path = "browse"
	// StoragePath is the path of the storage location picker.
	StoragePath = "storage"
	// PlayerPath is where a chosen file continues.
	PlayerPath = "/player"

	storageTemplate = "storage"

	noticePermissionDenied = "Permission denied"
	noticeAtRoot           = "Already at the top of the library"
	noticeFileMissing      = "File not found"
	noticeStorageGone      = "Storage is no longer available"
)

// Service is the browser handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	hub *screen.Hub
}

// Handler is the browser handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the browser handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, hub *screen.Hub) error {
	if app == nil || cfg == nil || hub == nil {
		return handler.ErrNilDependency
	}

	s.cfg = cfg
	s.hub = hub

	app.Route("/"+Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post("/open", s.Open)
		router.Post("/back", s.Back)
		router.Post("/jump", s.Jump)
	})

	app.Get("/"+StoragePath, s.Storage)
	app.Post("/"+StoragePath+"/open", s.OpenStorage)

	return nil
}

// Get renders the current directory. A "dir" query parameter jumps there first.
func (s *Service) Get(c *fiber.Ctx) error {
	b := s.hub.Browser()

	var notices []string

	if dir := c.Query("dir"); dir != "" {
		if err := b.Jump(c.UserContext(), dir); err != nil {
			if errors.Is(err, browser.ErrOutsideRoot) {
				return handler.Fail(c, fiber.StatusForbidden, err.Error())
			}

			notices = append(notices, noticeFor(err))
		}
	} else if _, err := b.Reload(c.UserContext()); err != nil {
		notices = append(notices, noticeFor(err))
	}

	listing := b.Listing()

	if handler.WantsJSON(c) {
		return c.JSON(listing)
	}

	nav := navigation.NewContext("Library", "browse", "listing").
		AddPathBreadcrumbs(listing.Root, listing.Path, "/"+Path)

	return c.Render(Path, fiber.Map{
		"Listing":    listing,
		"Parent":     browser.ParentEntryName,
		"Navigation": nav,
		"Notices":    append(session.Flashes(c), notices...),
	}, handler.BaseLayout)
}

// Open opens a listed entry: a directory is entered, a file starts the player.
func (s *Service) Open(c *fiber.Ctx) error {
	path := c.FormValue("path")
	if path == "" {
		return handler.Fail(c, fiber.StatusBadRequest, "path is required")
	}

	action, err := s.hub.Browser().Open(c.UserContext(), path)
	if err != nil {
		switch {
		case errors.Is(err, browser.ErrNotListed):
			return handler.Fail(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, browser.ErrOutsideRoot):
			return handler.Fail(c, fiber.StatusForbidden, err.Error())
		case errors.Is(err, media.ErrPermissionDenied):
			return handler.Done(c, "/"+Path, noticePermissionDenied, s.hub.Browser().Listing())
		default:
			log.Error().Err(err).Str("path", path).Msg("failed to open entry")
			return handler.Fail(c, fiber.StatusInternalServerError, "failed to open entry")
		}
	}

	if action.Kind == browser.ActionList {
		return handler.Done(c, "/"+Path, "", s.hub.Browser().Listing())
	}

	sess, err := s.hub.Play(c.UserContext(), action.Path)
	if err != nil {
		if errors.Is(err, player.ErrFileNotFound) || errors.Is(err, player.ErrNoFilePath) {
			return handler.Done(c, "/"+Path, noticeFileMissing, fiber.Map{"error": noticeFileMissing})
		}

		log.Error().Err(err).Str("path", action.Path).Msg("failed to start playback")

		return handler.Fail(c, fiber.StatusInternalServerError, "failed to start playback")
	}

	return handler.Done(c, PlayerPath, "", sess.Snapshot())
}

// Back goes one step back. At the top the browser stays where it is.
func (s *Service) Back(c *fiber.Ctx) error {
	b := s.hub.Browser()

	err := b.Back(c.UserContext())

	switch {
	case err == nil:
		return handler.Done(c, "/"+Path, "", b.Listing())
	case errors.Is(err, browser.ErrExit):
		if handler.WantsJSON(c) {
			return c.JSON(fiber.Map{"exit": true, "listing": b.Listing()})
		}

		return handler.Done(c, "/"+Path, noticeAtRoot, nil)
	default:
		return handler.Done(c, "/"+Path, noticeFor(err), b.Listing())
	}
}

// Jump moves to the posted directory, typically a storage location.
func (s *Service) Jump(c *fiber.Ctx) error {
	dir := c.FormValue("dir")
	if dir == "" {
		return handler.Fail(c, fiber.StatusBadRequest, "dir is required")
	}

	b := s.hub.Browser()

	if err := b.Jump(c.UserContext(), dir); err != nil {
		if errors.Is(err, browser.ErrOutsideRoot) {
			return handler.Fail(c, fiber.StatusForbidden, err.Error())
		}

		return handler.Done(c, "/"+Path, noticeFor(err), b.Listing())
	}

	return handler.Done(c, "/"+Path, "", b.Listing())
}

// Storage lists the storage locations present on the device.
func (s *Service) Storage(c *fiber.Ctx) error {
	locations := s.locations(c)

	if handler.WantsJSON(c) {
		return c.JSON(fiber.Map{"locations": locations})
	}

	nav := navigation.NewContext("Storage", "browse", "storage").
		AddBreadcrumb("Library", "/"+Path, false).
		AddBreadcrumb("Storage", "/"+StoragePath, true)

	return c.Render(storageTemplate, fiber.Map{
		"Locations":  locations,
		"Root":       s.hub.Browser().Root(),
		"Navigation": nav,
		"Notices":    session.Flashes(c),
	}, handler.BaseLayout)
}

// OpenStorage makes a listed storage location the top of the browser.
func (s *Service) OpenStorage(c *fiber.Ctx) error {
	dir := c.FormValue("dir")
	if dir == "" {
		return handler.Fail(c, fiber.StatusBadRequest, "dir is required")
	}

	dir = filepath.Clean(dir)

	if !slices.Contains(s.locations(c), dir) {
		return handler.Fail(c, fiber.StatusForbidden, "not a storage location")
	}

	b := s.hub.Browser()

	if err := b.SwitchRoot(c.UserContext(), dir); err != nil {
		if errors.Is(err, browser.ErrNotDirectory) {
			return handler.Done(c, "/"+StoragePath, noticeStorageGone, fiber.Map{"error": noticeStorageGone})
		}

		return handler.Done(c, "/"+Path, noticeFor(err), b.Listing())
	}

	log.Info().Str("dir", dir).Msg("browsing storage location")

	return handler.Done(c, "/"+Path, "", b.Listing())
}

// locations discovers the storage present now; removable media only when enabled.
func (s *Service) locations(c *fiber.Ctx) []string {
	storage := media.StorageConfig{Paths: s.cfg.Library.StoragePaths}

	current, err := s.hub.Settings().Load(c.UserContext())
	if err != nil {
		log.Warn().Err(err).Msg("loading settings for storage scan, using defaults")
	}

	if current.ScanExternalStorage {
		storage.USBMountRoot = s.cfg.Library.USBMountRoot
		storage.RemovableRoots = s.cfg.Library.RemovableRoots
	}

	return media.StorageLocations(storage)
}

func noticeFor(err error) string {
	if errors.Is(err, media.ErrPermissionDenied) {
		return noticePermissionDenied
	}

	log.Error().Err(err).Msg("browser failure")

	return "Cannot show this directory"
}
