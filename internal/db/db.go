// Package db opens the gorm connection the settings and position stores share.
package db

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db/dsn"
	"github.com/tvplayer/tvplayer/internal/db/models"
)

// Open connects to the configured engine and migrates every model.
// The caller owns the returned handle and releases it with Close.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		dialector = gormmysql.Open(dsn.MySQL(&cfg.DB))
	case config.EnginePostgres:
		dialector = gormpostgres.Open(dsn.Postgres(&cfg.DB))
	case config.EngineSQLite, "":
		dialector = sqlite.Open(dsn.SQLite(&cfg.DB.SQLite))
	default:
		return nil, errors.Wrap(config.ErrUnknownGormEngine, cfg.DB.GormEngine)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(cfg.DevMode),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if cfg.DB.GormEngine == config.EngineSQLite || cfg.DB.GormEngine == "" {
		if err = tuneSQLitePool(gdb, &cfg.DB.SQLite); err != nil {
			return nil, err
		}
	}

	if err = Migrate(gdb); err != nil {
		return nil, err
	}

	log.Info().Str("engine", cfg.DB.GormEngine).Msg("database ready")

	return gdb, nil
}

// Migrate creates or updates the tables of all models.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return ErrDBNil
	}

	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	return nil
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}

	log.Info().Msg("closing database connection")

	return sqlDB.Close() //nolint:wrapcheck
}

// tuneSQLitePool bounds the pool; sqlite allows one writer at a time.
func tuneSQLitePool(gdb *gorm.DB, s *config.SQLite) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}

	maxOpen := s.MaxOpenConns
	if maxOpen < 1 {
		maxOpen = 1
	}

	maxIdle := s.MaxIdleConns
	if maxIdle < 0 {
		maxIdle = 0
	}

	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)

	return nil
}
