// Package store persists canonical venues. SQLite is the default local
// backend; Postgres is available for shared deployments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-ingest/internal/db"
	"github.com/sells-group/venue-ingest/internal/model"
)

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Migrate creates the venues table and its indexes if missing.
	Migrate(ctx context.Context) error

	// UpsertVenue inserts v, or overwrites every mutable column of the row
	// with the same ID. created_at is kept from the first insert. v is not
	// modified; read the row back for its stored timestamps.
	UpsertVenue(ctx context.Context, v *model.Venue) error

	QueryVenues(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error)
	Stats(ctx context.Context) (*model.VenueStats, error)

	Close() error
}

const venuesTable = "venues"

// venueColumns is the bind order shared by upsert and select.
var venueColumns = []string{
	"id", "name", "name_th", "name_en", "branch", "category",
	"price_tier", "rating", "review_count", "latitude", "longitude",
	"address", "phone", "website", "opening_hours", "is_open",
	"photos", "menu_items", "district", "city", "postal_code",
	"verified_info", "verified_location", "delivery_available", "pickup_available",
	"created_at", "updated_at",
}

// venueUpdateColumns excludes the key and created_at, which re-upserts
// never touch.
func venueUpdateColumns() []string {
	cols := make([]string, 0, len(venueColumns)-2)
	for _, c := range venueColumns {
		if c == "id" || c == "created_at" {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

func mustVenueUpsertSQL(ph db.Placeholder) string {
	stmt, err := db.UpsertStatement(db.UpsertConfig{
		Table:        venuesTable,
		Columns:      venueColumns,
		ConflictKeys: []string{"id"},
		UpdateCols:   venueUpdateColumns(),
	}, ph)
	if err != nil {
		// The config above is static; a failure here is a programming error.
		panic(err)
	}
	return stmt
}

// venueArgs returns bind values in venueColumns order.
func venueArgs(v *model.Venue, now time.Time) ([]any, error) {
	photos, err := marshalList(v.Photos)
	if err != nil {
		return nil, eris.Wrapf(err, "marshal photos for %s", v.ID)
	}
	menu, err := marshalList(v.MenuItems)
	if err != nil {
		return nil, eris.Wrapf(err, "marshal menu items for %s", v.ID)
	}

	var hours any
	if v.OpeningHours != "" {
		hours = v.OpeningHours
	}

	return []any{
		v.ID, v.Name, v.NameTH, v.NameEN, v.Branch, v.Category,
		v.PriceTier, v.Rating, v.ReviewCount, v.Latitude, v.Longitude,
		v.Address, v.Phone, v.Website, hours, v.IsOpen,
		photos, menu, v.District, v.City, v.PostalCode,
		v.VerifiedInfo, v.VerifiedLocation, v.DeliveryAvailable, v.PickupAvailable,
		now, now,
	}, nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	return string(b), err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanVenue(row scannable) (*model.Venue, error) {
	var v model.Venue
	var hours *string
	var photos, menu string
	err := row.Scan(
		&v.ID, &v.Name, &v.NameTH, &v.NameEN, &v.Branch, &v.Category,
		&v.PriceTier, &v.Rating, &v.ReviewCount, &v.Latitude, &v.Longitude,
		&v.Address, &v.Phone, &v.Website, &hours, &v.IsOpen,
		&photos, &menu, &v.District, &v.City, &v.PostalCode,
		&v.VerifiedInfo, &v.VerifiedLocation, &v.DeliveryAvailable, &v.PickupAvailable,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "scan venue")
	}
	if hours != nil {
		v.OpeningHours = *hours
	}
	if err := json.Unmarshal([]byte(photos), &v.Photos); err != nil {
		return nil, eris.Wrapf(err, "unmarshal photos for %s", v.ID)
	}
	if err := json.Unmarshal([]byte(menu), &v.MenuItems); err != nil {
		return nil, eris.Wrapf(err, "unmarshal menu items for %s", v.ID)
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

// dialect captures the syntax differences between the two backends.
type dialect struct {
	placeholder db.Placeholder
	like        string // LIKE (SQLite, ASCII case-insensitive) or ILIKE (Postgres)
}

var (
	sqliteDialect   = dialect{placeholder: db.Question, like: "LIKE"}
	postgresDialect = dialect{placeholder: db.Dollar, like: "ILIKE"}
)

// buildVenueQuery renders the filtered select. Predicates compose with AND;
// results are ordered by rating, then review count, then id.
func buildVenueQuery(f model.VenueFilter, d dialect) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(venueColumns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(venuesTable)
	b.WriteString(" WHERE 1=1")

	var args []any
	bind := func(v any) string {
		args = append(args, v)
		if d.placeholder == db.Question {
			return "?"
		}
		return fmt.Sprintf("$%d", len(args))
	}

	if f.City != "" {
		fmt.Fprintf(&b, ` AND city %s %s ESCAPE '\'`, d.like, bind(likePattern(f.City)))
	}
	if f.Category != "" {
		fmt.Fprintf(&b, ` AND category %s %s ESCAPE '\'`, d.like, bind(likePattern(f.Category)))
	}
	if f.MinRating != nil {
		fmt.Fprintf(&b, " AND rating >= %s", bind(*f.MinRating))
	}
	if f.PriceTier != nil {
		fmt.Fprintf(&b, " AND price_tier = %s", bind(*f.PriceTier))
	}
	if f.DeliveryAvailable != nil {
		fmt.Fprintf(&b, " AND delivery_available = %s", bind(*f.DeliveryAvailable))
	}

	b.WriteString(" ORDER BY rating DESC, review_count DESC, id ASC")

	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %s", bind(f.Limit))
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring match, escaping LIKE wildcards.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

const statsQuery = `SELECT
	COUNT(*),
	COUNT(DISTINCT NULLIF(city, '')),
	COUNT(DISTINCT NULLIF(category, '')),
	COALESCE(AVG(rating), 0),
	COALESCE(SUM(CASE WHEN delivery_available THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN pickup_available THEN 1 ELSE 0 END), 0)
FROM venues`

func scanStats(row scannable) (*model.VenueStats, error) {
	var s model.VenueStats
	if err := row.Scan(&s.Total, &s.Cities, &s.Categories, &s.AvgRating, &s.DeliveryCount, &s.PickupCount); err != nil {
		return nil, eris.Wrap(err, "scan stats")
	}
	return &s, nil
}
