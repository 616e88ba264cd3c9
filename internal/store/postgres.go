package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-ingest/internal/db"
	"github.com/sells-group/venue-ingest/internal/model"
)

var postgresUpsertSQL = mustVenueUpsertSQL(postgresDialect.placeholder)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
	now  func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresFromPool(pool), nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return applySchema(ctx, func(ctx context.Context, stmt string) error {
		_, err := s.pool.Exec(ctx, stmt)
		return err
	}, postgresSchema)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertVenue(ctx context.Context, v *model.Venue) error {
	args, err := venueArgs(v, s.now())
	if err != nil {
		return eris.Wrap(err, "postgres: upsert venue")
	}
	if _, err := s.pool.Exec(ctx, postgresUpsertSQL, args...); err != nil {
		return eris.Wrapf(err, "postgres: upsert venue %s", v.ID)
	}
	return nil
}

func (s *PostgresStore) QueryVenues(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	query, args := buildVenueQuery(filter, postgresDialect)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query venues")
	}
	defer rows.Close()

	venues := []model.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: query venues")
		}
		venues = append(venues, *v)
	}
	return venues, eris.Wrap(rows.Err(), "postgres: query venues iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.VenueStats, error) {
	st, err := scanStats(s.pool.QueryRow(ctx, statsQuery))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return st, nil
}
