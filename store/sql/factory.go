package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const defaultPingTimeout = 5 * time.Second

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return defaultPingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-vault"
}

// Open connects to the configured database through go-persistence-bun and
// applies the embedded migrations for its dialect.
func Open(ctx context.Context, cfg core.StoreConfig) (*persistence.Client, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required for driver %q", driver)
	}
	dialect, err := migrations.DialectForDriver(driver)
	if err != nil {
		return nil, err
	}

	var bunDialect schema.Dialect
	switch dialect {
	case migrations.DialectSQLite:
		driver = core.StoreDriverSQLite
		bunDialect = sqlitedialect.New()
	case migrations.DialectPostgres:
		driver = core.StoreDriverPostgres
		bunDialect = pgdialect.New()
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{driver: driver, server: dsn}, sqlDB, bunDialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	_, err = migrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(dialect))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

// OpenCredentialStore opens the database and returns a credential store over
// it, wrapped in a read-through cache when cfg.CacheTTL is positive. The
// caller owns the returned client and must close it.
func OpenCredentialStore(ctx context.Context, cfg core.StoreConfig) (core.CredentialStore, *persistence.Client, error) {
	client, err := Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewCredentialStoreFromPersistence(client, WithKeyPrefix(cfg.KeyPrefix))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if cfg.CacheTTL <= 0 {
		return store, client, nil
	}

	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = cfg.CacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("sqlstore: new cache service: %w", err)
	}
	cached, err := NewCachedCredentialStore(store, cacheService)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return cached, client, nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
