// Package history lists and prunes the saved resume positions.
package history

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
	"github.com/tvplayer/tvplayer/internal/screen"
	"github.com/tvplayer/tvplayer/internal/web/handler"
	"github.com/tvplayer/tvplayer/internal/web/navigation"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

// Path is the path of the history page.
const Path = "history"

// Service is the history handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	hub *screen.Hub
}

// Handler is the history handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the history handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, hub *screen.Hub) error {
	if app == nil || cfg == nil || hub == nil {
		return handler.ErrNilDependency
	}

	s.cfg = cfg
	s.hub = hub

	app.Route("/"+Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post("/delete", s.Delete)
		router.Post("/clear", s.Clear)
	})

	return nil
}

// Get lists the records, most recently played first.
func (s *Service) Get(c *fiber.Ctx) error {
	records, err := s.hub.Positions().ListAll(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("failed to list playback history")
		return handler.Fail(c, fiber.StatusInternalServerError, "Failed to load history")
	}

	if handler.WantsJSON(c) {
		return c.JSON(fiber.Map{"records": records})
	}

	nav := navigation.NewContext("History", "history", "records").
		AddBreadcrumb("Library", "/browse", false).
		AddBreadcrumb("History", "/"+Path, true)

	return c.Render(Path, fiber.Map{
		"Records":    records,
		"Navigation": nav,
		"Notices":    session.Flashes(c),
	}, handler.BaseLayout)
}

// Delete forgets the position of one file.
func (s *Service) Delete(c *fiber.Ctx) error {
	path := c.FormValue("path")

	if err := s.hub.Positions().Delete(c.UserContext(), path); err != nil {
		if errors.Is(err, playback.ErrFilePathEmpty) {
			return handler.Fail(c, fiber.StatusBadRequest, err.Error())
		}

		log.Error().Err(err).Str("path", path).Msg("failed to delete playback record")

		return handler.Fail(c, fiber.StatusInternalServerError, "Failed to delete record")
	}

	return handler.Done(c, "/"+Path, "Record removed", fiber.Map{"deleted": path})
}

// Clear forgets every position.
func (s *Service) Clear(c *fiber.Ctx) error {
	n, err := s.hub.Positions().Clear(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("failed to clear playback history")
		return handler.Fail(c, fiber.StatusInternalServerError, "Failed to clear history")
	}

	log.Info().Int64("records", n).Msg("playback history cleared")

	return handler.Done(c, "/"+Path, "Removed "+strconv.FormatInt(n, 10)+" records", fiber.Map{"deleted": n})
}
