package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/screen"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, hub *screen.Hub) error
}
