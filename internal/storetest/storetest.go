// Package storetest provides sqlite-backed fixtures for repository and
// service tests. The schema is built by running the real migration steps.
package storetest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/migrate"
	"github.com/deepstorefront/storefront/pkg/redis"
)

// NewDB opens a fresh sqlite database in a temp dir with every migration
// applied.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "store.db") + "?_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	runner, err := migrate.NewRunner(sqlDB, migrate.DialectSQLite, migrate.Options{})
	require.NoError(t, err)
	require.NoError(t, runner.Up(context.Background()))
	return conn
}

// NewClient wraps NewDB in a db.Client for services that run transactions.
func NewClient(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromConn(NewDB(t))
}

// SeedCollection inserts a collection.
func SeedCollection(t testing.TB, conn *gorm.DB, title string) *models.Collection {
	t.Helper()
	c := &models.Collection{Title: title}
	require.NoError(t, conn.Create(c).Error)
	return c
}

// SeedProduct inserts a product priced at price inside collectionID.
func SeedProduct(t testing.TB, conn *gorm.DB, collectionID int64, title, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:        title,
		Slug:         title,
		UnitPrice:    decimal.RequireFromString(price),
		CollectionID: collectionID,
	}
	require.NoError(t, conn.Create(p).Error)
	return p
}

// SeedCustomer inserts a customer with a unique email.
func SeedCustomer(t testing.TB, conn *gorm.DB, email string) *models.Customer {
	t.Helper()
	c := &models.Customer{FirstName: "Test", LastName: "Customer", Email: email, Membership: "B"}
	require.NoError(t, conn.Create(c).Error)
	return c
}

// MemoryCache is an in-memory stand-in for the Redis JSON cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	TTLs    map[string]time.Duration
	Hits    int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	c.Hits++
	return json.Unmarshal(raw, dest)
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	c.TTLs[key] = ttl
	return nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *MemoryCache) CacheKey(parts ...string) string {
	return "test:cache:" + strings.Join(parts, ":")
}

// Has reports whether key is currently cached.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
