package browse

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/tvplayer/internal/screen/browser"
	"github.com/tvplayer/tvplayer/internal/web/handler/handlertest"
)

func newTestApp(t *testing.T) (*fiber.App, *handlertest.Env) {
	t.Helper()

	env := handlertest.NewEnv(t)
	app := handlertest.NewApp()

	svc := &Service{}
	require.NoError(t, svc.Init(app, env.Config, env.Hub))

	return app, env
}

func decodeListing(t *testing.T, resp *http.Response) browser.Listing {
	t.Helper()

	var listing browser.Listing
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))

	return listing
}

func names(l browser.Listing) []string {
	out := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		out = append(out, e.Name)
	}

	return out
}

func TestInitNil(t *testing.T) {
	svc := &Service{}
	require.Error(t, svc.Init(nil, nil, nil))
}

func TestGet(t *testing.T) {
	app, env := newTestApp(t)

	resp := handlertest.JSON(t, app, http.MethodGet, "/browse", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	listing := decodeListing(t, resp)
	assert.Equal(t, filepath.Clean(env.Root), listing.Path)
	assert.True(t, listing.AtRoot)
	assert.Equal(t, []string{"movies", "a.mkv", "b.mkv"}, names(listing))

	resp = handlertest.Page(t, app, http.MethodGet, "/browse", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, Path, handlertest.Body(t, resp))
}

func TestGetWithDir(t *testing.T) {
	app, env := newTestApp(t)

	resp := handlertest.JSON(t, app, http.MethodGet, "/browse?dir="+url.QueryEscape(filepath.Join(env.Root, "movies")), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	listing := decodeListing(t, resp)
	assert.Equal(t, []string{browser.ParentEntryName, "c.mp4"}, names(listing))

	resp = handlertest.JSON(t, app, http.MethodGet, "/browse?dir="+url.QueryEscape(filepath.Dir(env.Root)), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestOpenDirectoryAndBack(t *testing.T) {
	app, env := newTestApp(t)

	handlertest.JSON(t, app, http.MethodGet, "/browse", nil)

	movies := filepath.Join(env.Root, "movies")

	resp := handlertest.Page(t, app, http.MethodPost, "/browse/open", url.Values{"path": {movies}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/browse", resp.Header.Get(fiber.HeaderLocation))
	assert.Equal(t, movies, env.Hub.Browser().Current())

	resp = handlertest.JSON(t, app, http.MethodPost, "/browse/back", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, filepath.Clean(env.Root), decodeListing(t, resp).Path)

	resp = handlertest.JSON(t, app, http.MethodPost, "/browse/back", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var exit struct {
		Exit bool `json:"exit"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exit))
	assert.True(t, exit.Exit, "back at the root leaves the browser")

	resp = handlertest.Page(t, app, http.MethodPost, "/browse/back", nil)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
}

func TestOpenFileStartsPlayer(t *testing.T) {
	app, env := newTestApp(t)

	handlertest.JSON(t, app, http.MethodGet, "/browse", nil)

	resp := handlertest.Page(t, app, http.MethodPost, "/browse/open", url.Values{"path": {filepath.Join(env.Root, "a.mkv")}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, PlayerPath, resp.Header.Get(fiber.HeaderLocation))

	sess, err := env.Hub.Player()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.Root, "a.mkv"), sess.FilePath())
}

func TestOpenErrors(t *testing.T) {
	app, env := newTestApp(t)

	handlertest.JSON(t, app, http.MethodGet, "/browse", nil)

	resp := handlertest.JSON(t, app, http.MethodPost, "/browse/open", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = handlertest.JSON(t, app, http.MethodPost, "/browse/open", url.Values{"path": {filepath.Join(env.Root, "nope.mkv")}})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestJump(t *testing.T) {
	app, env := newTestApp(t)

	resp := handlertest.JSON(t, app, http.MethodPost, "/browse/jump", url.Values{"dir": {filepath.Join(env.Root, "movies")}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, filepath.Join(env.Root, "movies"), decodeListing(t, resp).Path)

	resp = handlertest.JSON(t, app, http.MethodPost, "/browse/jump", url.Values{"dir": {"/"}})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = handlertest.JSON(t, app, http.MethodPost, "/browse/jump", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStorage(t *testing.T) {
	app, env := newTestApp(t)

	resp := handlertest.JSON(t, app, http.MethodGet, "/storage", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Locations []string `json:"locations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{filepath.Clean(env.Root)}, body.Locations, "missing mount points are skipped")

	resp = handlertest.Page(t, app, http.MethodGet, "/storage", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, storageTemplate, handlertest.Body(t, resp))
}

func TestOpenStorageLocation(t *testing.T) {
	app, env := newTestApp(t)

	mounts := t.TempDir()
	usb := filepath.Join(mounts, "usb1")
	require.NoError(t, os.Mkdir(usb, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(usb, "trip.mkv"), []byte("x"), 0o600))

	env.Config.Library.USBMountRoot = mounts

	resp := handlertest.JSON(t, app, http.MethodGet, "/storage", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Locations []string `json:"locations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, []string{filepath.Clean(env.Root), usb}, body.Locations)

	for _, loc := range body.Locations {
		resp = handlertest.JSON(t, app, http.MethodPost, "/storage/open", url.Values{"dir": {loc}})
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "every listed location opens: %s", loc)
		assert.Equal(t, loc, decodeListing(t, resp).Path)
	}

	listing := env.Hub.Browser().Listing()
	assert.Equal(t, usb, listing.Root)
	assert.True(t, listing.AtRoot)
	assert.Equal(t, []string{"trip.mkv"}, names(listing))

	resp = handlertest.JSON(t, app, http.MethodPost, "/browse/open", url.Values{"path": {filepath.Join(usb, "trip.mkv")}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	running, err := env.Hub.Player()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usb, "trip.mkv"), running.FilePath())

	resp = handlertest.JSON(t, app, http.MethodPost, "/storage/open", url.Values{"dir": {mounts}})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "only discovered locations open")

	resp = handlertest.JSON(t, app, http.MethodPost, "/storage/open", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = handlertest.Page(t, app, http.MethodPost, "/storage/open", url.Values{"dir": {filepath.Clean(env.Root)}})
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, filepath.Clean(env.Root), env.Hub.Browser().Root())
}
