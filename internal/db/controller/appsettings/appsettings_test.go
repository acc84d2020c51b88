package appsettings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/tvplayer/internal/db/controller/setting"
	"github.com/tvplayer/tvplayer/internal/db/dbtest"
	"github.com/tvplayer/tvplayer/internal/overlay"
)

func TestLoadDefaults(t *testing.T) {
	store := NewStore(dbtest.Open(t), "/srv/media")

	got, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Defaults("/srv/media"), got)
	assert.Equal(t, 5, got.SeekBackwardSeconds)
	assert.Equal(t, 5, got.SeekForwardSeconds)
	assert.Equal(t, ViewGrid, got.ViewMode)
	assert.True(t, got.ShowFileSize)
	assert.True(t, got.ShowDuration)
	assert.True(t, got.ScanExternalStorage)
	assert.Empty(t, got.DirectoryFilter)
	assert.Equal(t, overlay.DefaultConfig(), got.Overlay)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(dbtest.Open(t), "/srv/media")

	in := Defaults("/srv/media/movies")
	in.SeekBackwardSeconds = 10
	in.SeekForwardSeconds = 30
	in.ViewMode = ViewList
	in.ShowFileSize = false
	in.DirectoryFilter = "movies series"
	in.Overlay.Color = 0xFFFF0000
	in.Overlay.Opacity = 60
	in.Overlay.Anchor = overlay.AnchorBottomLeft

	require.NoError(t, store.Save(ctx, in))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// Saving again overwrites rather than duplicating rows.
	in.SeekForwardSeconds = 15
	require.NoError(t, store.Save(ctx, in))

	all, err := setting.GetAll(store.db)
	require.NoError(t, err)
	assert.Len(t, all, 9)
	assert.Equal(t, []byte("15"), all[KeySeekForwardSeconds])
}

func TestLoadUnreadableValues(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	store := NewStore(db, "/srv/media")

	require.NoError(t, setting.SetMany(db, map[string][]byte{
		KeySeekBackwardSeconds: []byte("soon"),
		KeyShowDuration:        []byte("maybe"),
		KeyViewMode:            []byte("list"),
		KeyOverlayConfig:       []byte(`{"version":7,"config":{"width":1}}`),
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, got.SeekBackwardSeconds)
	assert.True(t, got.ShowDuration)
	assert.Equal(t, ViewList, got.ViewMode)
	assert.Equal(t, overlay.DefaultConfig(), got.Overlay, "newer overlay versions fall back to defaults")
}

func TestLastDirectory(t *testing.T) {
	ctx := context.Background()
	store := NewStore(dbtest.Open(t), "/srv/media")

	assert.Empty(t, store.LastDirectory(ctx))

	require.NoError(t, store.SaveLastDirectory(ctx, "/srv/media/series"))
	assert.Equal(t, "/srv/media/series", store.LastDirectory(ctx))

	require.NoError(t, store.SaveLastDirectory(ctx, "/srv/media"))
	assert.Equal(t, "/srv/media", store.LastDirectory(ctx))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := NewStore(dbtest.Open(t), "/srv/media")

	// Nothing stored yet.
	require.NoError(t, store.Reset(ctx))

	custom := Defaults("/srv/media/movies")
	custom.SeekForwardSeconds = 45
	custom.Overlay.Enabled = false
	custom.DirectoryFilter = "kids"

	require.NoError(t, store.Save(ctx, custom))
	require.NoError(t, store.SaveLastDirectory(ctx, "/srv/media/series"))

	require.NoError(t, store.Reset(ctx))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults("/srv/media"), got)
	assert.Equal(t, "/srv/media/series", store.LastDirectory(ctx))

	all, err := setting.GetAll(store.db)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, KeyLastDirectory)
}

func TestNilDB(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, "/srv/media")

	got, err := store.Load(ctx)
	require.ErrorIs(t, err, setting.ErrDBNil)
	assert.Equal(t, Defaults("/srv/media"), got)

	require.ErrorIs(t, store.Save(ctx, got), setting.ErrDBNil)
	require.ErrorIs(t, store.SaveLastDirectory(ctx, "/x"), setting.ErrDBNil)
	require.ErrorIs(t, store.Reset(ctx), setting.ErrDBNil)
	assert.Empty(t, store.LastDirectory(ctx))
}

func TestParseViewMode(t *testing.T) {
	assert.Equal(t, ViewList, ParseViewMode(" list "))
	assert.Equal(t, ViewGrid, ParseViewMode("GRID"))
	assert.Equal(t, ViewGrid, ParseViewMode("carousel"))
}

func TestClampSeekSeconds(t *testing.T) {
	assert.Equal(t, 1, ClampSeekSeconds(0))
	assert.Equal(t, 60, ClampSeekSeconds(61))
	assert.Equal(t, 30, ClampSeekSeconds(30))
}
