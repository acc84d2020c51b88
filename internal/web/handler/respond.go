package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tvplayer/tvplayer/internal/web/navigation"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

// ErrNilDependency is returned by Init when app, cfg or hub is missing.
var ErrNilDependency = errors.New(ErrNilACHFatalLogMsg)

// WantsJSON reports whether the client asked for JSON rather than a page.
func WantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// Fail answers with status: a JSON error body for API clients, the error page otherwise.
func Fail(c *fiber.Ctx, status int, msg string) error {
	if WantsJSON(c) {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	nav := navigation.NewContext("Error", "", "").
		AddBreadcrumb("Library", "/browse", false)

	return c.Status(status).Render(ErrorTemplate, fiber.Map{
		"Error":      msg,
		"Status":     status,
		"Navigation": nav,
	}, BaseLayout)
}

// Done redirects page clients to target with an optional notice, and answers API clients with payload.
func Done(c *fiber.Ctx, target, notice string, payload any) error {
	if WantsJSON(c) {
		return c.JSON(payload)
	}

	if notice != "" {
		session.Flash(c, notice)
	}

	return c.Redirect(target, fiber.StatusSeeOther)
}

// ValidationMessages lists one line per failed field of a validator error.
func ValidationMessages(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	errorMessages := make([]string, len(validationErrors))
	for i, ve := range validationErrors {
		errorMessages[i] = "Field '" + ve.Field() + "' failed validation tag '" + ve.Tag() + "'"
	}

	return errorMessages
}
