// Package web is the remote-control surface of the player: HTML pages for a
// browser on the TV or a phone, and JSON for remote-control bridges.
package web

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/config"
	accesslog "github.com/tvplayer/tvplayer/internal/logger/adapter/fiber"
	"github.com/tvplayer/tvplayer/internal/media"
	"github.com/tvplayer/tvplayer/internal/screen"
	"github.com/tvplayer/tvplayer/internal/web/handler"
	"github.com/tvplayer/tvplayer/internal/web/handler/browse"
	"github.com/tvplayer/tvplayer/internal/web/handler/history"
	"github.com/tvplayer/tvplayer/internal/web/handler/player"
	"github.com/tvplayer/tvplayer/internal/web/handler/settings"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

// MetricsPath exposes the prometheus registry.
const MetricsPath = "/metrics"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	hub          *screen.Hub
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for a termination signal and shuts the http server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown reports not alive for the configured grace time, then stops the http server.
func (s *Service) Shutdown() {
	// set status to fail, so checkalive returns fail while clients notice.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether checkalive answers OK.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, hub *screen.Hub) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if hub == nil {
		panic("hub cannot be nil")
	}

	if session.Store == nil {
		session.Init(nil)
	}

	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in debug mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	addTemplateFuncs(templateEngine)

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
			ErrorHandler:   errorHandler,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		CheckAliveURI: cfg.Webserver.CheckAliveURI,
	}))

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		hub:          hub,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if uri := cfg.Webserver.CheckAliveURI; uri != "" {
		app.Get(uri, service.checkAlive)
	}

	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	// init handlers (they register their own routes)
	for name, h := range map[string]handler.Service{
		"browse":   &browse.Handler,
		"player":   &player.Handler,
		"settings": &settings.Handler,
		"history":  &history.Handler,
	} {
		if err := h.Init(app, cfg, hub); err != nil {
			log.Fatal().Err(err).Str("handler", name).Msg(handler.ErrNilACHFatalLogMsg)
		}
	}

	// the library is the home screen
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/" + browse.Path)
	})

	return service
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	return handler.Fail(c, code, err.Error())
}

func addTemplateFuncs(engine *html.Engine) {
	engine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	engine.AddFunc("sub", func(a, b int) int {
		return a - b
	})
	engine.AddFunc("formatSize", media.FormatSize)
	engine.AddFunc("formatDuration", media.FormatDuration)
	engine.AddFunc("formatMs", func(ms int64) string {
		return media.FormatDuration(time.Duration(ms) * time.Millisecond)
	})
	engine.AddFunc("query", url.QueryEscape)
}
