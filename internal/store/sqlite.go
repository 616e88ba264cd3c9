package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/venue-ingest/internal/model"
)

var sqliteUpsertSQL = mustVenueUpsertSQL(sqliteDialect.placeholder)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, &StorageInitError{Statement: pragma, Err: err}
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return applySchema(ctx, func(ctx context.Context, stmt string) error {
		_, err := s.db.ExecContext(ctx, stmt)
		return err
	}, sqliteSchema)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertVenue(ctx context.Context, v *model.Venue) error {
	args, err := venueArgs(v, s.now())
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert venue")
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsertSQL, args...); err != nil {
		return eris.Wrapf(err, "sqlite: upsert venue %s", v.ID)
	}
	return nil
}

func (s *SQLiteStore) QueryVenues(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	query, args := buildVenueQuery(filter, sqliteDialect)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query venues")
	}
	defer rows.Close() //nolint:errcheck

	venues := []model.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: query venues")
		}
		venues = append(venues, *v)
	}
	return venues, eris.Wrap(rows.Err(), "sqlite: query venues iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.VenueStats, error) {
	st, err := scanStats(s.db.QueryRowContext(ctx, statsQuery))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return st, nil
}
