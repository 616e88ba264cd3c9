package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/venue-ingest/internal/model"
)

// UpsertSummary counts the outcome of a batch upsert.
type UpsertSummary struct {
	Saved  int `json:"saved"`
	Errors int `json:"errors"`
}

// Upsert writes each venue with its own statement. A failed venue is
// logged and counted; the remaining venues are still written.
func (p *Pipeline) Upsert(ctx context.Context, venues []model.Venue) UpsertSummary {
	var sum UpsertSummary
	for i := range venues {
		if err := p.store.UpsertVenue(ctx, &venues[i]); err != nil {
			perr := &PersistError{ID: venues[i].ID, Err: err}
			zap.L().Warn("pipeline: upsert failed",
				zap.String("venue_id", venues[i].ID),
				zap.Error(perr),
			)
			sum.Errors++
			continue
		}
		sum.Saved++
	}
	p.metrics.Persisted(sum.Saved, sum.Errors)
	return sum
}
