package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/tvplayer/internal/config"
	"github.com/tvplayer/tvplayer/internal/db"
	"github.com/tvplayer/tvplayer/internal/db/controller/playback"
)

// run executes the root command with args against the repository etc/ directory
// and a throwaway sqlite database.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "tvplayer.db")
	t.Setenv(config.EnvConfigJSON, `{"DB":{"SQLite":{"Path":"`+dbPath+`"}},"Log":{"Console":{"Enabled":false}}}`)

	clearHistory, configAsJSON, browseStatic, devMode = false, false, false, false

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", "../etc/"}, args...))

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, `Title = "tvplayer"`)

	out, err = run(t, "config", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Title": "tvplayer"`)
}

func TestDevFlag(t *testing.T) {
	_, err := run(t, "--dev", "config")
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
}

func TestMissingConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"--config", t.TempDir() + "/", "config"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})

	require.Error(t, rootCmd.Execute())
}

func TestHistoryCommand(t *testing.T) {
	out, err := run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "LAST PLAYED")

	gdb, err := db.Open(&cfg)
	require.NoError(t, err)

	_, err = playback.NewStore(gdb).Upsert(context.Background(), "/srv/media/a.mkv",
		(2 * time.Minute).Milliseconds(), (4 * time.Minute).Milliseconds())
	require.NoError(t, err)
	require.NoError(t, db.Close(gdb))

	// the second run gets its own database, so list through the same path again
	t.Setenv(config.EnvConfigJSON, `{"DB":{"SQLite":{"Path":"`+cfg.DB.SQLite.Path+`"}},"Log":{"Console":{"Enabled":false}}}`)

	var buf bytes.Buffer

	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--config", "../etc/", "history"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "/srv/media/a.mkv")
	assert.Contains(t, buf.String(), "02:00 / 04:00")
	assert.Contains(t, buf.String(), "50%")

	buf.Reset()
	rootCmd.SetArgs([]string{"--config", "../etc/", "history", "--clear"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "removed 1 records\n", buf.String())
}

func TestLocationsCommand(t *testing.T) {
	storage := t.TempDir()
	t.Setenv(config.EnvConfigJSON, `{"Library":{"StoragePaths":["`+storage+`","`+storage+`/missing"],"RemovableRoots":[],"USBMountRoot":""},"Log":{"Console":{"Enabled":false}}}`)

	var buf bytes.Buffer

	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--config", "../etc/", "locations"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, storage+"\n", buf.String())
}
