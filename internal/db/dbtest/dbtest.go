// Package dbtest opens throw-away databases for package tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tvplayer/tvplayer/internal/db/models"
)

// Open returns a migrated in-memory SQLite database.
// The pool is pinned to one connection: every new ":memory:" connection is a new, empty database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(models.All()...), "failed to migrate test database")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return gdb
}
