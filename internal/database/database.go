// Package database manages the PostgreSQL pool and schema migrations.
package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config describes how to reach Postgres and size the pool.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string // defaults to "disable"
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConnectionString is the libpq-style URL pgx connects with.
func (c Config) ConnectionString() string { return c.dsn("postgres") }

// MigrationURL is the same URL under the scheme golang-migrate's pgx/v5
// driver registers.
func (c Config) MigrationURL() string { return c.dsn("pgx5") }

func (c Config) dsn(scheme string) string {
	mode := c.SSLMode
	if mode == "" {
		mode = "disable"
	}
	return (&url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     c.Database,
		RawQuery: url.Values{"sslmode": {mode}}.Encode(),
	}).String()
}

// Connect opens a pool, traces its queries and pings it once. Zero pool
// settings keep pgx's defaults.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if n := int32(cfg.MaxOpenConns); n > 0 { //nolint:gosec // small config value
		pc.MaxConns = n
	}
	if n := int32(cfg.MaxIdleConns); n > 0 { //nolint:gosec // small config value
		pc.MinConns = n
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.ConnConfig.Tracer = newQueryTracer(nil)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
