package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/tvplayer/internal/db/models"
	"github.com/tvplayer/tvplayer/internal/web/handler/handlertest"
)

func newTestApp(t *testing.T) (*fiber.App, *handlertest.Env) {
	t.Helper()

	env := handlertest.NewEnv(t)
	app := handlertest.NewApp()

	svc := &Service{}
	require.NoError(t, svc.Init(app, env.Config, env.Hub))

	ctx := context.Background()
	for _, path := range []string{"/srv/media/a.mkv", "/srv/media/b.mkv", "/srv/media/c.mkv"} {
		_, err := env.Hub.Positions().Upsert(ctx, path, 60_000, 600_000)
		require.NoError(t, err)
	}

	return app, env
}

func listed(t *testing.T, app *fiber.App) []models.PlaybackRecord {
	t.Helper()

	resp := handlertest.JSON(t, app, http.MethodGet, "/history", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Records []models.PlaybackRecord `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Records
}

func TestGet(t *testing.T) {
	app, _ := newTestApp(t)

	records := listed(t, app)
	require.Len(t, records, 3)
	assert.Equal(t, "/srv/media/c.mkv", records[0].FilePath, "most recent first")

	resp := handlertest.Page(t, app, http.MethodGet, "/history", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, Path, handlertest.Body(t, resp))
}

func TestDelete(t *testing.T) {
	app, _ := newTestApp(t)

	resp := handlertest.Page(t, app, http.MethodPost, "/history/delete", url.Values{"path": {"/srv/media/b.mkv"}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	records := listed(t, app)
	require.Len(t, records, 2)

	for _, r := range records {
		assert.NotEqual(t, "/srv/media/b.mkv", r.FilePath)
	}

	resp = handlertest.JSON(t, app, http.MethodPost, "/history/delete", url.Values{"path": {"/srv/media/b.mkv"}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "deleting twice is fine")

	resp = handlertest.JSON(t, app, http.MethodPost, "/history/delete", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestClear(t *testing.T) {
	app, _ := newTestApp(t)

	resp := handlertest.JSON(t, app, http.MethodPost, "/history/clear", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(3), body.Deleted)
	assert.Empty(t, listed(t, app))
}
