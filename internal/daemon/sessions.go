package daemon

import (
	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db/dsn"
)

const sessionTable = "web_sessions"

// sessionStorage keeps web sessions next to the stores on mysql and postgres.
// On sqlite sessions stay in memory (nil storage).
func sessionStorage(cfg *config.Config) fiber.Storage {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.MySQL(&cfg.DB),
			Table:         sessionTable,
		})
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Postgres(&cfg.DB),
			Table:         sessionTable,
		})
	default:
		return nil
	}
}
