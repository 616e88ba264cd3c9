package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// StorageInitError reports a schema statement that failed for a reason
// other than the object already existing.
type StorageInitError struct {
	Statement string
	Err       error
}

func (e *StorageInitError) Error() string {
	return fmt.Sprintf("store: init storage: %v (statement: %s)", e.Err, firstLine(e.Statement))
}

func (e *StorageInitError) Unwrap() error {
	return e.Err
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS venues (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	name_th            TEXT NOT NULL DEFAULT '',
	name_en            TEXT NOT NULL DEFAULT '',
	branch             TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT '',
	price_tier         INTEGER NOT NULL DEFAULT 0,
	rating             REAL NOT NULL DEFAULT 0,
	review_count       INTEGER NOT NULL DEFAULT 0,
	latitude           REAL,
	longitude          REAL,
	address            TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	website            TEXT NOT NULL DEFAULT '',
	opening_hours      TEXT,
	is_open            BOOLEAN NOT NULL DEFAULT 1,
	photos             TEXT NOT NULL DEFAULT '[]',
	menu_items         TEXT NOT NULL DEFAULT '[]',
	district           TEXT NOT NULL DEFAULT '',
	city               TEXT NOT NULL DEFAULT '',
	postal_code        TEXT NOT NULL DEFAULT '',
	verified_info      BOOLEAN NOT NULL DEFAULT 0,
	verified_location  BOOLEAN NOT NULL DEFAULT 0,
	delivery_available BOOLEAN NOT NULL DEFAULT 0,
	pickup_available   BOOLEAN NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_venues_city ON venues(city)`,
	`CREATE INDEX IF NOT EXISTS idx_venues_category ON venues(category)`,
	`CREATE INDEX IF NOT EXISTS idx_venues_rating ON venues(rating)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS venues (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	name_th            TEXT NOT NULL DEFAULT '',
	name_en            TEXT NOT NULL DEFAULT '',
	branch             TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT '',
	price_tier         INTEGER NOT NULL DEFAULT 0,
	rating             DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count       INTEGER NOT NULL DEFAULT 0,
	latitude           DOUBLE PRECISION,
	longitude          DOUBLE PRECISION,
	address            TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	website            TEXT NOT NULL DEFAULT '',
	opening_hours      TEXT,
	is_open            BOOLEAN NOT NULL DEFAULT TRUE,
	photos             JSONB NOT NULL DEFAULT '[]',
	menu_items         JSONB NOT NULL DEFAULT '[]',
	district           TEXT NOT NULL DEFAULT '',
	city               TEXT NOT NULL DEFAULT '',
	postal_code        TEXT NOT NULL DEFAULT '',
	verified_info      BOOLEAN NOT NULL DEFAULT FALSE,
	verified_location  BOOLEAN NOT NULL DEFAULT FALSE,
	delivery_available BOOLEAN NOT NULL DEFAULT FALSE,
	pickup_available   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS idx_venues_city ON venues(city)`,
	`CREATE INDEX IF NOT EXISTS idx_venues_category ON venues(category)`,
	`CREATE INDEX IF NOT EXISTS idx_venues_rating ON venues(rating DESC)`,
}

// applySchema runs each statement in order. "already exists" failures are
// logged and skipped; anything else stops with a *StorageInitError.
func applySchema(ctx context.Context, exec func(ctx context.Context, stmt string) error, stmts []string) error {
	log := zap.L().With(zap.String("component", "store.schema"))
	for _, stmt := range stmts {
		err := exec(ctx, stmt)
		if err == nil {
			continue
		}
		if isAlreadyExists(err) {
			log.Warn("schema object already exists, skipping",
				zap.String("statement", firstLine(stmt)),
				zap.Error(err),
			)
			continue
		}
		return &StorageInitError{Statement: stmt, Err: err}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
