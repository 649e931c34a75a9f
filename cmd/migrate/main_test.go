package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/migrate"
)

func openClient(t *testing.T, cfg config.DBConfig) *db.Client {
	t.Helper()
	client, err := db.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	return client
}

func TestExecuteClosesClientOnEveryOutcome(t *testing.T) {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate-test", Output: io.Discard})
	cfg := config.DBConfig{Driver: config.DriverSQLite, DSN: "file:" + filepath.Join(t.TempDir(), "migrate.db")}
	run := func(cmd string, target int64) (string, *db.Client, error) {
		client := openClient(t, cfg)
		var out bytes.Buffer
		err := execute(ctx, logg, client, migrate.DialectSQLite, migrate.Options{}, cmd, target, &out)
		return out.String(), client, err
	}

	out, client, err := run("status", 0)
	require.NoError(t, err)
	assert.Contains(t, out, "pending")
	assert.Error(t, client.Ping(ctx), "client is closed after a successful command")

	_, client, err = run("bogus", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown -cmd value "bogus"`)
	assert.Error(t, client.Ping(ctx), "client is closed after a failed command")

	_, _, err = run("to", -1)
	require.Error(t, err)

	_, _, err = run("up", 0)
	require.NoError(t, err)

	out, _, err = run("version", 0)
	require.NoError(t, err)
	assert.NotEqual(t, "0", strings.TrimSpace(out))

	out, _, err = run("status", 0)
	require.NoError(t, err)
	assert.NotContains(t, out, "pending")
}
