// Package pipeline ingests the restaurant directory: it fetches listing
// pages, normalizes each raw record into a canonical venue, and upserts
// the venues into the store.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-ingest/internal/metrics"
	"github.com/sells-group/venue-ingest/internal/model"
	"github.com/sells-group/venue-ingest/internal/source"
	"github.com/sells-group/venue-ingest/internal/store"
)

// Fetcher retrieves one page of raw directory records.
type Fetcher interface {
	FetchPage(ctx context.Context, page, size int) ([]json.RawMessage, error)
}

// Options configures a Pipeline.
type Options struct {
	// Delay is the fixed pause between a persisted page and the next fetch.
	Delay time.Duration

	// Metrics is optional.
	Metrics *metrics.Registry
}

// Pipeline drives the fetch, normalize and persist loop.
type Pipeline struct {
	fetcher Fetcher
	store   store.Store
	delay   time.Duration
	metrics *metrics.Registry
}

// New creates a Pipeline.
func New(f Fetcher, st store.Store, opts Options) *Pipeline {
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	return &Pipeline{
		fetcher: f,
		store:   st,
		delay:   delay,
		metrics: opts.Metrics,
	}
}

// InitStorage ensures the venues table and its indexes exist.
func (p *Pipeline) InitStorage(ctx context.Context) error {
	return p.store.Migrate(ctx)
}

// FetchPage fetches one page. Every failure is reported as a
// *source.FetchError carrying the page number, except invalid arguments,
// which return source.ErrInvalidPage.
func (p *Pipeline) FetchPage(ctx context.Context, page, size int) ([]json.RawMessage, error) {
	if page < 1 || size < 1 {
		return nil, source.ErrInvalidPage
	}
	if err := ctx.Err(); err != nil {
		return nil, &source.FetchError{Page: page, Cause: err}
	}
	records, err := p.fetcher.FetchPage(ctx, page, size)
	if err != nil {
		var fe *source.FetchError
		if errors.As(err, &fe) || errors.Is(err, source.ErrInvalidPage) {
			return nil, err
		}
		return nil, &source.FetchError{Page: page, Cause: err}
	}
	return records, nil
}

// QueryEntities returns stored venues matching every predicate in filter,
// ordered by rating then review count, both descending.
func (p *Pipeline) QueryEntities(ctx context.Context, filter model.VenueFilter) ([]model.Venue, error) {
	venues, err := p.store.QueryVenues(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: query entities")
	}
	return venues, nil
}

// GetStats returns aggregate counts over all stored venues.
func (p *Pipeline) GetStats(ctx context.Context) (*model.VenueStats, error) {
	st, err := p.store.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get stats")
	}
	return st, nil
}
