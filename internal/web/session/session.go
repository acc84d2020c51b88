// Package session keeps per-remote notices across redirects.
package session

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"
)

const (
	cookieName = "tvplayer_session"
	expiration = 2 * time.Hour
	flashKey   = "flash"
	flashSep   = "\n"
)

// Store is the global session store instance.
var Store *session.Store //nolint:gochecknoglobals

// Init initializes the session store. A nil storage keeps sessions in memory.
func Init(storage fiber.Storage) {
	Store = session.New(session.Config{
		Storage:        storage,
		Expiration:     expiration,
		KeyLookup:      "cookie:" + cookieName,
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
	})
}

// Flash queues a notice shown on the next rendered page.
func Flash(c *fiber.Ctx, msg string) {
	if Store == nil || msg == "" {
		return
	}

	sess, err := Store.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("session unavailable, notice dropped")
		return
	}

	if prev, ok := sess.Get(flashKey).(string); ok && prev != "" {
		msg = prev + flashSep + msg
	}

	sess.Set(flashKey, msg)

	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save session")
	}
}

// Flashes returns and clears the queued notices.
func Flashes(c *fiber.Ctx) []string {
	if Store == nil {
		return nil
	}

	sess, err := Store.Get(c)
	if err != nil {
		return nil
	}

	msg, _ := sess.Get(flashKey).(string)
	if msg == "" {
		return nil
	}

	sess.Delete(flashKey)

	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save session")
	}

	return strings.Split(msg, flashSep)
}
