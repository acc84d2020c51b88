package daemon

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/db/controller/setting"
)

// seed writes the default preferences when the settings table is empty,
// so a fresh install starts browsing the configured library root.
func seed(ctx context.Context, cfg *config.Config, db *gorm.DB, store *appsettings.Store) error {
	existing, err := setting.GetAll(db)
	if err != nil {
		return errors.Wrap(err, "failed to read settings")
	}

	if len(existing) > 0 {
		return nil
	}

	if err := store.Save(ctx, appsettings.Defaults(cfg.Library.Root)); err != nil {
		return errors.Wrap(err, "failed to seed default settings")
	}

	log.Info().Str("library", cfg.Library.Root).Msg("default settings created")

	return nil
}
