package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// PersistenceConfig satisfies the persistence client configuration
// surface with plain values.
type PersistenceConfig struct {
	Debug          bool
	Driver         string
	Server         string
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c PersistenceConfig) GetDebug() bool { return c.Debug }

func (c PersistenceConfig) GetDriver() string { return c.Driver }

func (c PersistenceConfig) GetServer() string { return c.Server }

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout > 0 {
		return c.PingTimeout
	}
	return 5 * time.Second
}

func (c PersistenceConfig) GetOtelIdentifier() string { return c.OtelIdentifier }

// OpenPostgres opens a postgres-backed persistence client for the
// onboarding tables.
func OpenPostgres(cfg PersistenceConfig) (*persistence.Client, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, fmt.Errorf("sqlstore: postgres server dsn is required")
	}
	cfg.Driver = "postgres"
	sqlDB, err := sql.Open("postgres", cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: build persistence client: %w", err)
	}
	return client, nil
}

// OpenSQLite opens a sqlite-backed persistence client. Shared-cache
// in-memory DSNs need a single connection to stay on the same database.
func OpenSQLite(cfg PersistenceConfig) (*persistence.Client, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, fmt.Errorf("sqlstore: sqlite dsn is required")
	}
	cfg.Driver = "sqlite3"
	sqlDB, err := sql.Open("sqlite3", cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
	}
	if strings.Contains(cfg.Server, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: build persistence client: %w", err)
	}
	return client, nil
}
