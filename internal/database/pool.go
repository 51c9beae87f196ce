package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DefaultDatabaseName is used when the DSN does not name a database
const DefaultDatabaseName = "emojify"

// PoolConfig defines connection pool settings
type PoolConfig struct {
	DSN             string
	MaxConns        int32         // Max open connections
	MinConns        int32         // Connections kept warm
	ConnMaxLifetime time.Duration // Max connection lifetime
	ConnMaxIdleTime time.Duration // Max idle time before close
}

// DefaultPoolConfig returns pool settings sized for one API instance
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:             dsn,
		MaxConns:        10,
		MinConns:        2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// NewPool creates a pgx connection pool and verifies it with a ping
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := HealthCheck(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// OpenSQL opens a database/sql handle over the pgx driver. golang-migrate
// needs one; the API uses the pgx pool.
func OpenSQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck verifies database connectivity
func HealthCheck(ctx context.Context, db Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}

	return nil
}

// DatabaseName extracts the database name from a DSN
func DatabaseName(dsn string) (string, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Database == "" {
		return DefaultDatabaseName, nil
	}
	return cfg.Database, nil
}
