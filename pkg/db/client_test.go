package db

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/logger"
)

func sqliteConfig(t *testing.T) config.DBConfig {
	t.Helper()
	return config.DBConfig{
		Driver:          config.DriverSQLite,
		DSN:             "file:" + filepath.Join(t.TempDir(), "client.db"),
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

func TestDialectorSelectsDriver(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector(config.DBConfig{Driver: "SQLite", DSN: "file::memory:"}).Name())
	assert.Equal(t, "postgres", Dialector(config.DBConfig{Driver: config.DriverPostgres, DSN: "postgres://store@localhost/store"}).Name())
	assert.Equal(t, "postgres", Dialector(config.DBConfig{DSN: "postgres://store@localhost/store"}).Name(), "postgres is the fallback driver")
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: config.DriverSQLite}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestNewSQLiteUsesSingleConnection(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: io.Discard})
	client, err := New(context.Background(), sqliteConfig(t), logg)
	require.NoError(t, err)

	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections, "sqlite overrides the configured pool size")

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Exec(context.Background(), "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)").Error)

	var count int64
	require.NoError(t, client.Raw(context.Background(), "SELECT COUNT(*) FROM notes").Scan(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()), "ping fails once the pool is closed")
}

func TestApplyPoolSettings(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(sqliteConfig(t).DSN), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	applyPoolSettings(sqlDB, config.DBConfig{MaxOpenConns: 7, MaxIdleConns: 3})
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)

	applyPoolSettings(sqlDB, config.DBConfig{})
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections, "zero values keep the current pool size")
}

func TestNewFromConnSharesConnection(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(sqliteConfig(t).DSN), &gorm.Config{})
	require.NoError(t, err)

	client := NewFromConn(conn)
	assert.Same(t, conn, client.DB())
	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
}
