// Package db opens gorm connections for the configured storage backend.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"market_journal/internal/platform/config"
)

// sqliteBusyTimeoutMS lets concurrent writers wait for the SQLite write lock.
const sqliteBusyTimeoutMS = 5000

// Opener opens a gorm connection for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// Connector hands out a connection scoped to a single call.
type Connector interface {
	WithConn(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PerCallConnector opens a fresh connection for every WithConn call and
// closes it on every exit path.
type PerCallConnector struct {
	dsn  string
	open Opener
}

var _ Connector = (*PerCallConnector)(nil)

// NewConnector returns a PerCallConnector for cfg. For SQLite the parent
// directory of the database file is created if missing.
func NewConnector(cfg config.DatabaseConfig) (*PerCallConnector, error) {
	if cfg.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}
	return &PerCallConnector{dsn: BuildDSN(cfg), open: OpenerFor(cfg.Driver)}, nil
}

// NewConnectorWithOpener is NewConnector with an explicit opener.
func NewConnectorWithOpener(dsn string, open Opener) *PerCallConnector {
	return &PerCallConnector{dsn: dsn, open: open}
}

// WithConn opens a connection, runs fn with ctx bound, and closes the connection.
func (c *PerCallConnector) WithConn(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	gdb, err := c.open(c.dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		sqlDB, derr := gdb.DB()
		if derr != nil {
			return
		}
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Warn("failed to close database connection", "error", cerr)
		}
	}()
	return fn(gdb.WithContext(ctx))
}

// BuildDSN builds the driver specific DSN.
func BuildDSN(cfg config.DatabaseConfig) string {
	if cfg.Driver == "postgres" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode)
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", cfg.Path, sqliteBusyTimeoutMS)
}

// GormConfig is shared by every connection. TranslateError maps unique
// violations to gorm.ErrDuplicatedKey on both drivers.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// OpenerFor returns the Opener for a driver name.
func OpenerFor(driver string) Opener {
	if driver == "postgres" {
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), GormConfig())
		}
	}
	return func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), GormConfig())
	}
}

// ConnectWithRetry opens a connection, retrying every 3 seconds until timeout.
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		gdb, err := open(dsn)
		if err == nil {
			return gdb, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %v: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err)
		time.Sleep(3 * time.Second)
	}
}

// WaitReady blocks until the database accepts a connection, then releases it.
func WaitReady(cfg config.DatabaseConfig, timeout time.Duration) error {
	gdb, err := ConnectWithRetry(BuildDSN(cfg), timeout, OpenerFor(cfg.Driver))
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return err
	}
	return sqlDB.Close()
}

// Migrate creates the tables for models if they do not exist.
func Migrate(ctx context.Context, conn Connector, models ...any) error {
	return conn.WithConn(ctx, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(models...); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		return nil
	})
}

// Ping opens a connection through conn and pings it.
func Ping(ctx context.Context, conn Connector) error {
	return conn.WithConn(ctx, func(tx *gorm.DB) error {
		sqlDB, err := tx.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}
