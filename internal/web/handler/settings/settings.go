// Package settings serves the preferences screen.
package settings

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/screen"
	settingsscreen "github.com/tvplayer/tvplayer/internal/screen/settings"
	"github.com/tvplayer/tvplayer/internal/web/handler"
	"github.com/tvplayer/tvplayer/internal/web/navigation"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

const (
	// Path is the path of the settings screen.
	Path = "settings"

	noticeSaved = "Settings saved"
	noticeReset = "Settings reset to defaults"
)

// Service is the settings handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	hub       *screen.Hub
	validator *validator.Validate
}

// Handler is the settings handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init initializes the settings handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, hub *screen.Hub) error {
	if app == nil || cfg == nil || hub == nil {
		return handler.ErrNilDependency
	}

	s.cfg = cfg
	s.hub = hub
	s.validator = validator.New()

	app.Route("/"+Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
		router.Post("/adjust/:control/:direction", s.Adjust)
		router.Post("/reset", s.Reset)
		router.Post("/exit", s.Exit)
	})

	return nil
}

// Get renders the fields of the open editor.
func (s *Service) Get(c *fiber.Ctx) error {
	if handler.WantsJSON(c) {
		return c.JSON(s.state(c))
	}

	return s.render(c, fiber.StatusOK, fiber.Map{"Notices": session.Flashes(c)})
}

// Post replaces every field with the submitted form and saves.
func (s *Service) Post(c *fiber.Ctx) error {
	form := Form{}
	if err := c.BodyParser(&form); err != nil {
		log.Error().Err(err).Msg("failed to parse settings form")
		return s.invalid(c, []string{"Invalid form data"})
	}

	form.ViewMode = strings.ToUpper(form.ViewMode)

	if err := s.validator.Struct(form); err != nil {
		log.Warn().Err(err).Msg("validation failed for settings")
		return s.invalid(c, handler.ValidationMessages(err))
	}

	next, err := form.Apply()
	if err != nil {
		return s.invalid(c, []string{err.Error()})
	}

	editor := s.hub.Editor(c.UserContext())
	if err := editor.Replace(next); err != nil {
		return s.invalid(c, handler.ValidationMessages(err))
	}

	if err := s.hub.SaveSettings(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("failed to save settings")
		return handler.Fail(c, fiber.StatusInternalServerError, "Failed to save settings")
	}

	log.Info().
		Int("seek_backward", next.SeekBackwardSeconds).
		Int("seek_forward", next.SeekForwardSeconds).
		Bool("overlay", next.Overlay.Enabled).
		Msg("settings saved")

	return handler.Done(c, "/"+Path, noticeSaved, s.state(c))
}

// Adjust steps one control "up" or "down", like the remote does on the screen.
func (s *Service) Adjust(c *fiber.Ctx) error {
	control, err := settingsscreen.ParseControl(c.Params("control"))
	if err != nil {
		return handler.Fail(c, fiber.StatusNotFound, err.Error())
	}

	var step int

	switch c.Params("direction") {
	case "up":
		step = 1
	case "down":
		step = -1
	default:
		return handler.Fail(c, fiber.StatusBadRequest, "direction must be up or down")
	}

	if err := s.hub.Editor(c.UserContext()).Adjust(control, step); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	return handler.Done(c, "/"+Path, "", s.state(c))
}

// Reset drops the stored preferences and reopens the editor on the defaults.
func (s *Service) Reset(c *fiber.Ctx) error {
	if err := s.hub.ResetSettings(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("failed to reset settings")
		return handler.Fail(c, fiber.StatusInternalServerError, "Failed to reset settings")
	}

	log.Info().Msg("settings reset")

	return handler.Done(c, "/"+Path, noticeReset, s.state(c))
}

// Exit leaves the screen. The fields are saved on the way out.
func (s *Service) Exit(c *fiber.Ctx) error {
	if filter, ok := formValue(c, "directoryFilter"); ok {
		s.hub.Editor(c.UserContext()).SetDirectoryFilter(filter)
	}

	if err := s.hub.CloseSettings(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("failed to save settings on exit")

		if handler.WantsJSON(c) {
			return handler.Fail(c, fiber.StatusBadRequest, strings.Join(handler.ValidationMessages(err), "; "))
		}

		return s.invalid(c, handler.ValidationMessages(err))
	}

	return handler.Done(c, "/browse", noticeSaved, fiber.Map{"closed": true})
}

func (s *Service) state(c *fiber.Ctx) fiber.Map {
	editor := s.hub.Editor(c.UserContext())

	return fiber.Map{
		"settings":  editor.Settings(),
		"colorName": editor.ColorName(),
		"dirty":     editor.Dirty(),
	}
}

func (s *Service) invalid(c *fiber.Ctx, messages []string) error {
	if handler.WantsJSON(c) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": messages})
	}

	return s.render(c, fiber.StatusBadRequest, fiber.Map{"Error": messages})
}

func (s *Service) render(c *fiber.Ctx, status int, extra fiber.Map) error {
	editor := s.hub.Editor(c.UserContext())
	current := editor.Settings()

	nav := navigation.NewContext("Settings", "settings", "editor").
		AddBreadcrumb("Library", "/browse", false).
		AddBreadcrumb("Settings", "/"+Path, true)

	data := fiber.Map{
		"Settings":   current,
		"Form":       FormFrom(current),
		"ColorName":  editor.ColorName(),
		"Dirty":      editor.Dirty(),
		"Controls":   settingsscreen.Controls,
		"Palette":    settingsscreen.Palette,
		"Navigation": nav,
	}

	for k, v := range extra {
		data[k] = v
	}

	return c.Status(status).Render(Path, data, handler.BaseLayout)
}

func formValue(c *fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil {
		if v, ok := form.Value[key]; ok && len(v) > 0 {
			return v[0], true
		}
	}

	if c.Request().PostArgs().Has(key) {
		return string(c.Request().PostArgs().Peek(key)), true
	}

	return "", false
}
