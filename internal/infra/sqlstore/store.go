// Package sqlstore is the relational persistence adapter for the catalog and
// user accounts. It speaks database/sql against SQLite (modernc.org/sqlite,
// the default) or Postgres (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/organic-shop-bfa/internal/infra/resilience"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("sqlstore")

// Store implements port.ProductStore, port.CategoryStore, port.UserStore
// and port.HealthChecker on a single connection pool.
type Store struct {
	db      *sql.DB
	dialect dialect
	retry   resilience.Config
	logger  *zap.Logger
}

// Open connects, verifies the connection and applies the schema.
func Open(ctx context.Context, driver, dsn string, retry resilience.Config, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	driverName, source := d.name, dsn
	if d.name == DriverSQLite {
		if err := registerSQLiteFuncs(); err != nil {
			return nil, err
		}
		source = sqliteDSN(dsn)
	}

	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d.name == DriverSQLite && isMemoryDSN(dsn) {
		// every new connection would get its own empty in-memory database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, dialect: d, retry: retry, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Info("database ready", zap.String("driver", d.name))
	return s, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if s.dialect.name == DriverSQLite {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	r := strings.NewReplacer("{{pk}}", s.dialect.serialPK)
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// withRetry runs fn again on transient lock/serialization conflicts only.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return resilience.RetryIf(ctx, s.retry, func(err error) bool {
		attempt++
		if !isConflictError(err) {
			return false
		}
		s.logger.Warn("sqlstore: conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return true
	}, fn)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id {{pk}},
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id {{pk}},
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active)`,
	`CREATE TABLE IF NOT EXISTS product_images (
		id {{pk}},
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		image_url TEXT NOT NULL,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_images_product ON product_images(product_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		address TEXT,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
}
