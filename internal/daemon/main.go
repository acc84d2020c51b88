// Package daemon assembles the player: database, stores, screens and the web remote.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db"
	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
	"github.com/tvplayer/tvplayer/internal/engine"
	"github.com/tvplayer/tvplayer/internal/engine/mpv"
	"github.com/tvplayer/tvplayer/internal/media"
	"github.com/tvplayer/tvplayer/internal/screen"
	"github.com/tvplayer/tvplayer/internal/screen/browser"
	"github.com/tvplayer/tvplayer/internal/screen/player"
	"github.com/tvplayer/tvplayer/internal/web"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

// ErrConfigNil is returned by New without configuration.
var ErrConfigNil = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	hub        *screen.Hub
	sessions   fiber.Storage
	webService *web.Service
}

// Option changes how New assembles the daemon.
type Option func(*options)

type options struct {
	engine engine.Factory
}

// WithEngine replaces the mpv engine, e.g. with a fake in tests.
func WithEngine(f engine.Factory) Option {
	return func(o *options) {
		o.engine = f
	}
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	o := options{engine: mpv.Factory(cfg.Player)}
	for _, opt := range opts {
		opt(&o)
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	settingsStore := appsettings.NewStore(gdb, cfg.Library.Root)

	if err := seed(ctx, cfg, gdb, settingsStore); err != nil {
		_ = db.Close(gdb)
		return nil, err
	}

	hub := screen.NewHub(ctx, screen.Deps{
		Browser: browser.New(ctx,
			media.NewLister(listerOptions(cfg.Player)...),
			settingsStore,
			cfg.Library.Root,
			cfg.Library.BrowseMode,
		),
		Settings:  settingsStore,
		Positions: playback.NewStore(gdb),
		Engine:    o.engine,
		Timing:    player.DefaultTiming(),
	})

	sessions := sessionStorage(cfg)
	session.Init(sessions)

	return &Daemon{
		cfg:        cfg,
		db:         gdb,
		hub:        hub,
		sessions:   sessions,
		webService: web.New(cfg, hub),
	}, nil
}

// Hub returns the screens of the daemon.
func (d *Daemon) Hub() *screen.Hub {
	return d.hub
}

// Start serves the web remote until SIGINT or SIGTERM, then shuts everything down.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	go func() {
		if err := d.webService.Start(addr); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("web service stopped")
		}
	}()

	log.Info().Str("addr", addr).Str("library", d.cfg.Library.Root).Msg("tvplayer started")

	d.webService.WaitShutdown()

	return d.Close()
}

// Close ends the running playback session, saving its position, and releases the database.
func (d *Daemon) Close() error {
	d.hub.Close()

	if d.sessions != nil {
		if err := d.sessions.Close(); err != nil {
			log.Warn().Err(err).Msg("closing session storage")
		}
	}

	return db.Close(d.db)
}

func listerOptions(cfg config.Player) []media.Option {
	if cfg.DisableProbe {
		return nil
	}

	return []media.Option{
		media.WithProber(media.FFProbe{
			Binary:  cfg.FFProbeBinary,
			Timeout: cfg.ProbeTimeout.Duration,
		}),
	}
}
