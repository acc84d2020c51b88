// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tvplayer/tvplayer/internal/config"
)

// Create builds the Data Source Name for the configured gorm engine.
func Create(cfg *config.Config) string {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return MySQL(&cfg.DB)
	case config.EnginePostgres:
		return Postgres(&cfg.DB)
	default:
		return SQLite(&cfg.DB.SQLite)
	}
}

// MySQL builds a go-sql-driver/mysql DSN.
func MySQL(db *config.DB) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Extras,
	)
}

// Postgres builds a pgx keyword/value DSN.
func Postgres(db *config.DB) string {
	out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		db.Host,
		db.Port,
		db.User,
		db.Password,
		db.Name,
	)

	if db.Extras != "" {
		out += " " + db.Extras
	}

	return out
}

// SQLite builds a glebarez/sqlite DSN, appending the configured PRAGMAs as _pragma parameters
// so every new pooled connection gets them, not only the first one.
func SQLite(s *config.SQLite) string {
	base, rawQuery, _ := strings.Cut(s.Path, "?")

	query, _ := url.ParseQuery(rawQuery)

	if s.BusyTimeoutMS > 0 {
		query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", s.BusyTimeoutMS))
	}

	if mode := NormalizeJournalMode(s.JournalMode); mode != "" {
		query.Add("_pragma", fmt.Sprintf("journal_mode(%s)", mode))
	}

	if sync := NormalizeSynchronous(s.Synchronous); sync != "" {
		query.Add("_pragma", fmt.Sprintf("synchronous(%s)", sync))
	}

	if len(query) == 0 {
		return base
	}

	return base + "?" + query.Encode()
}

// NormalizeJournalMode returns an accepted uppercase SQLite journal mode or "".
func NormalizeJournalMode(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
		return value
	default:
		return ""
	}
}

// NormalizeSynchronous returns an accepted uppercase SQLite synchronous value or "".
func NormalizeSynchronous(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "OFF", "NORMAL", "FULL", "EXTRA", "0", "1", "2", "3":
		return value
	default:
		return ""
	}
}
