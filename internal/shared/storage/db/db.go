// Package db opens the Postgres pool that backs the postgres KV gateway.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"resumaid/internal/shared/telemetry"
)

// ErrNoDatabaseURL is returned when no connection string is configured.
var ErrNoDatabaseURL = errors.New("DATABASE_URL is empty")

// Pool sizes and times the connection pool.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	PingTimeout time.Duration
}

// ServerPool suits the long-running API process.
func ServerPool() Pool {
	return Pool{MaxOpen: 10, MaxIdle: 5, MaxLifetime: time.Hour, MaxIdleTime: 2 * time.Minute, PingTimeout: 5 * time.Second}
}

// MigratePool suits one-shot migration runs.
func MigratePool() Pool {
	return Pool{MaxOpen: 1, MaxIdle: 1, MaxLifetime: time.Hour, MaxIdleTime: 2 * time.Minute, PingTimeout: 5 * time.Second}
}

// WithEnv overrides p from DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS,
// DB_CONN_MAX_LIFETIME, DB_CONN_MAX_IDLE_TIME and DB_PING_TIMEOUT.
// Unparseable values are logged and ignored.
func (p Pool) WithEnv() Pool {
	envInt("DB_MAX_OPEN_CONNS", &p.MaxOpen)
	envInt("DB_MAX_IDLE_CONNS", &p.MaxIdle)
	envDuration("DB_CONN_MAX_LIFETIME", &p.MaxLifetime)
	envDuration("DB_CONN_MAX_IDLE_TIME", &p.MaxIdleTime)
	envDuration("DB_PING_TIMEOUT", &p.PingTimeout)
	return p
}

var sqlOpen = sql.Open

// Open connects to databaseURL with the pgx driver and pings it.
func Open(ctx context.Context, databaseURL string, pool Pool) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNoDatabaseURL
	}
	conn, err := sqlOpen("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.apply(conn)

	timeout := pool.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := conn.Stats()
	telemetry.Info("db.open", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return conn, nil
}

func (p Pool) apply(conn *sql.DB) {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 10
	}
	if p.MaxIdle <= 0 || p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = time.Hour
	}
	conn.SetMaxOpenConns(p.MaxOpen)
	conn.SetMaxIdleConns(p.MaxIdle)
	conn.SetConnMaxLifetime(p.MaxLifetime)
	if p.MaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(p.MaxIdleTime)
	}
}

func envInt(key string, dst *int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "value": raw})
		return
	}
	*dst = v
}

func envDuration(key string, dst *time.Duration) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "value": raw})
		return
	}
	*dst = v
}
