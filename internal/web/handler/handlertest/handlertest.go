// Package handlertest wires a hub and a fiber app for handler tests.
package handlertest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db/controller/appsettings"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
	"github.com/tvplayer/tvplayer/internal/db/dbtest"
	"github.com/tvplayer/tvplayer/internal/engine/enginetest"
	"github.com/tvplayer/tvplayer/internal/media"
	"github.com/tvplayer/tvplayer/internal/screen"
	"github.com/tvplayer/tvplayer/internal/screen/browser"
	"github.com/tvplayer/tvplayer/internal/web/session"
)

// Position and Duration are what the idle engine of every test session reports.
const (
	Position = 30 * time.Second
	Duration = time.Hour
)

// NoOpViews is a minimal Fiber Views engine used for tests.
// It writes the template name, then the "Error" and "Notices" values of a
// fiber.Map, so tests can assert on what a handler rendered.
type NoOpViews struct{}

func (NoOpViews) Load() error { return nil }

func (NoOpViews) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	_, _ = io.WriteString(w, name)

	m, ok := data.(fiber.Map)
	if !ok {
		return nil
	}

	switch v := m["Error"].(type) {
	case string:
		_, _ = io.WriteString(w, "\n"+v)
	case []string:
		_, _ = io.WriteString(w, "\n"+strings.Join(v, "\n"))
	}

	if notices, ok := m["Notices"].([]string); ok {
		for _, n := range notices {
			_, _ = io.WriteString(w, "\n"+n)
		}
	}

	return nil
}

// Env is a hub on a temporary library with a.mkv, b.mkv and a movies directory.
type Env struct {
	Root   string
	Config *config.Config
	Hub    *screen.Hub
}

// NewEnv builds the library, the stores and the hub. Everything is released with t.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	session.Init(nil)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.mkv"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.mkv"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, "movies"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "movies", "c.mp4"), []byte("x"), 0o600))

	cfg := &config.Config{
		Title: "tvplayer",
		Webserver: config.Webserver{
			Port:          8080,
			URL:           "http://localhost:8080",
			CheckAliveURI: "/checkalive",
		},
		Library: config.Library{
			Root:         root,
			BrowseMode:   config.BrowseModeParent,
			StoragePaths: []string{root, filepath.Join(root, "missing")},
		},
	}

	gdb := dbtest.Open(t)
	settingsStore := appsettings.NewStore(gdb, root)

	hub := screen.NewHub(context.Background(), screen.Deps{
		Browser:   browser.New(context.Background(), media.NewLister(media.WithoutTags()), settingsStore, root, cfg.Library.BrowseMode),
		Settings:  settingsStore,
		Positions: playback.NewStore(gdb),
		Engine:    enginetest.Factory(Position, Duration),
	})

	t.Cleanup(hub.Close)

	return &Env{Root: root, Config: cfg, Hub: hub}
}

// NewApp returns a fiber app rendering through NoOpViews.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{Views: NoOpViews{}})
}

// JSON sends a request that asks for JSON.
func JSON(t *testing.T, app *fiber.App, method, target string, form url.Values) *http.Response {
	t.Helper()

	req := newRequest(method, target, form)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

// Page sends a request the way a browser does.
func Page(t *testing.T, app *fiber.App, method, target string, form url.Values) *http.Response {
	t.Helper()

	req := newRequest(method, target, form)
	req.Header.Set(fiber.HeaderAccept, "text/html,application/xhtml+xml")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

// Body reads the whole response body.
func Body(t *testing.T, resp *http.Response) string {
	t.Helper()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(b)
}

func newRequest(method, target string, form url.Values) *http.Request {
	if form == nil {
		return httptest.NewRequest(method, target, nil)
	}

	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	return req
}
