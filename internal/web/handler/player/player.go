// Package player serves the playback screen: remote keys, the resume prompt and closing.
package player

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/input"
	accesslog "github.com/tvplayer/tvplayer/internal/logger/adapter/fiber"
	"github.com/tvplayer/tvplayer/internal/screen"
	playerscreen "github.com/tvplayer/tvplayer/internal/screen/player"
	"github.com/tvplayer/tvplayer/internal/web/handler"
	"github.com/tvplayer/tvplayer/internal/web/navigation"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

const (
	// Path is the path of the player screen.
	Path = "player"
	// BrowsePath is where the player returns to.
	BrowsePath = "/browse"

	noticeNothingPlaying = "Nothing is playing"
	noticeFileMissing    = "File not found"
	noticeNoResume       = "No resume question is pending"
)

// Service is the player handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	hub *screen.Hub
}

// Handler is the player handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the player handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, hub *screen.Hub) error {
	if app == nil || cfg == nil || hub == nil {
		return handler.ErrNilDependency
	}

	s.cfg = cfg
	s.hub = hub

	app.Route("/"+Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post("/open", s.Open)
		router.Post("/key/:key", s.Key)
		router.Post("/resume", s.Resume)
		router.Post("/close", s.Close)
	})

	return nil
}

// Get shows the running session, or the one that just ended.
func (s *Service) Get(c *fiber.Ctx) error {
	sess := s.hub.LastSession()
	if sess == nil {
		if handler.WantsJSON(c) {
			return handler.Fail(c, fiber.StatusNotFound, noticeNothingPlaying)
		}

		return handler.Done(c, BrowsePath, noticeNothingPlaying, nil)
	}

	snap := sess.Snapshot()

	if handler.WantsJSON(c) {
		return c.JSON(snap)
	}

	nav := navigation.NewContext("Player", "player", "session").
		AddBreadcrumb("Library", BrowsePath, false).
		AddBreadcrumb(snap.FilePath, "/"+Path, true)

	return c.Render(Path, fiber.Map{
		"Snapshot":   snap,
		"Keys":       []input.Key{input.KeyLeft, input.KeyCenter, input.KeyRight, input.KeyUp, input.KeyDown, input.KeyMenu, input.KeyBack},
		"Navigation": nav,
		"Notices":    session.Flashes(c),
	}, handler.BaseLayout)
}

// Open starts a session on a file of the library.
func (s *Service) Open(c *fiber.Ctx) error {
	path := c.FormValue("path")
	if path == "" {
		return handler.Done(c, BrowsePath, noticeFileMissing, fiber.Map{"error": playerscreen.ErrNoFilePath.Error()})
	}

	if !s.hub.Browser().Contains(path) {
		return handler.Fail(c, fiber.StatusForbidden, "path outside library root")
	}

	sess, err := s.hub.Play(c.UserContext(), path)
	if err != nil {
		if errors.Is(err, playerscreen.ErrFileNotFound) {
			if handler.WantsJSON(c) {
				return handler.Fail(c, fiber.StatusNotFound, noticeFileMissing)
			}

			return handler.Done(c, BrowsePath, noticeFileMissing, nil)
		}

		log.Error().Err(err).Str("path", path).Msg("failed to start playback")

		return handler.Fail(c, fiber.StatusInternalServerError, "failed to start playback")
	}

	c.Locals(accesslog.LocalSession, sess.ID())

	return handler.Done(c, "/"+Path, "", sess.Snapshot())
}

// Key delivers one remote key. A "repeat" form value marks an auto-repeat of a held key.
func (s *Service) Key(c *fiber.Ctx) error {
	key, err := input.ParseKey(c.Params("key"))
	if err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	repeat, _ := strconv.Atoi(c.FormValue("repeat", "0"))

	sess, err := s.hub.Player()
	if err != nil {
		return s.gone(c)
	}

	c.Locals(accesslog.LocalSession, sess.ID())

	if err := sess.Press(input.Event{Key: key, Repeat: repeat}); err != nil {
		if errors.Is(err, playerscreen.ErrClosed) {
			return s.gone(c)
		}

		log.Error().Err(err).Str("session", sess.ID()).Str("key", string(key)).Msg("key press failed")

		return handler.Fail(c, fiber.StatusInternalServerError, err.Error())
	}

	if key.IsExit() {
		<-sess.Done()
		return handler.Done(c, BrowsePath, "", sess.Snapshot())
	}

	return handler.Done(c, "/"+Path, "", sess.Snapshot())
}

// Resume answers the resume prompt with the "choice" form value: "resume" or "restart".
func (s *Service) Resume(c *fiber.Ctx) error {
	var resume bool

	switch c.FormValue("choice") {
	case "resume":
		resume = true
	case "restart":
	default:
		return handler.Fail(c, fiber.StatusBadRequest, "choice must be resume or restart")
	}

	sess, err := s.hub.Player()
	if err != nil {
		return s.gone(c)
	}

	c.Locals(accesslog.LocalSession, sess.ID())

	if err := sess.ChooseResume(resume); err != nil {
		switch {
		case errors.Is(err, playerscreen.ErrNoResumePending):
			if handler.WantsJSON(c) {
				return handler.Fail(c, fiber.StatusConflict, noticeNoResume)
			}

			return handler.Done(c, "/"+Path, noticeNoResume, nil)
		case errors.Is(err, playerscreen.ErrClosed):
			return s.gone(c)
		default:
			log.Error().Err(err).Str("session", sess.ID()).Msg("resume choice failed")
			return handler.Fail(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return handler.Done(c, "/"+Path, "", sess.Snapshot())
}

// Close leaves the player, saving the position.
func (s *Service) Close(c *fiber.Ctx) error {
	s.hub.ClosePlayer()

	var payload any = fiber.Map{"closed": true}
	if last := s.hub.LastSession(); last != nil {
		payload = last.Snapshot()
	}

	return handler.Done(c, BrowsePath, "", payload)
}

func (s *Service) gone(c *fiber.Ctx) error {
	if handler.WantsJSON(c) {
		return handler.Fail(c, fiber.StatusNotFound, noticeNothingPlaying)
	}

	return handler.Done(c, BrowsePath, noticeNothingPlaying, nil)
}
