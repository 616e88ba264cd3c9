package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venue-ingest/internal/model"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := NewPostgresFromPool(mock)
	s.now = func() time.Time { return testNow }
	return s, mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS venues`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_venues_city`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_venues_category`).
		WillReturnError(errors.New(`relation "idx_venues_category" already exists`))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_venues_rating`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_Failure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS venues`).WillReturnError(errors.New("permission denied for schema public"))

	err := s.Migrate(context.Background())
	require.Error(t, err)

	var sie *StorageInitError
	require.ErrorAs(t, err, &sie)
	assert.Contains(t, sie.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertVenue(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	args := anyArgs(len(venueColumns))
	args[0] = "pub-9"
	args[25] = testNow
	args[26] = testNow

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "venues" ("id", "name"`) + `.*` +
		regexp.QuoteMeta(`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`)).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	v := &model.Venue{ID: "pub-9", Name: "Jay Fai"}
	require.NoError(t, s.UpsertVenue(context.Background(), v))
	assert.Equal(t, model.Venue{ID: "pub-9", Name: "Jay Fai"}, *v, "upsert must leave the input untouched")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertVenue_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "venues"`).
		WithArgs(anyArgs(len(venueColumns))...).
		WillReturnError(errors.New("value too long"))

	err := s.UpsertVenue(context.Background(), &model.Venue{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: upsert venue x")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func venueRow(id string, rating float64, reviews int) []any {
	lat := 13.75
	return []any{
		id, "Name " + id, "", "", "", "Thai",
		2, rating, reviews, &lat, (*float64)(nil),
		"", "", "", (*string)(nil), true,
		`["https://img/1.jpg"]`, `[]`, "Bang Rak", "Bangkok", "10500",
		false, false, true, false,
		testNow, testNow,
	}
}

func TestPostgresStore_QueryVenues(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows(venueColumns).
		AddRow(venueRow("a", 4.8, 10)...).
		AddRow(venueRow("b", 4.6, 5)...)

	mock.ExpectQuery(regexp.QuoteMeta(`AND city ILIKE $1 ESCAPE '\' AND rating >= $2 ORDER BY rating DESC, review_count DESC`)).
		WithArgs("%Bangkok%", 4.5).
		WillReturnRows(rows)

	minRating := 4.5
	got, err := s.QueryVenues(context.Background(), model.VenueFilter{City: "Bangkok", MinRating: &minRating})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	require.NotNil(t, got[0].Latitude)
	assert.InDelta(t, 13.75, *got[0].Latitude, 0.001)
	assert.Nil(t, got[0].Longitude)
	assert.Equal(t, []string{"https://img/1.jpg"}, got[0].Photos)
	assert.True(t, got[0].DeliveryAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryVenues_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name`).WillReturnError(errors.New("connection lost"))

	_, err := s.QueryVenues(context.Background(), model.VenueFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: query venues")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "cities", "categories", "avg", "delivery", "pickup"}).
			AddRow(5, 2, 3, 4.2, 3, 1))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.VenueStats{Total: 5, Cities: 2, Categories: 3, AvgRating: 4.2, DeliveryCount: 3, PickupCount: 1}, *st)
	assert.NoError(t, mock.ExpectationsWereMet())
}
