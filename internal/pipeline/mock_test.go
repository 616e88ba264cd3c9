package pipeline

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/venue-ingest/internal/model"
)

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) FetchPage(ctx context.Context, page, size int) ([]json.RawMessage, error) {
	args := m.Called(ctx, page, size)
	if v := args.Get(0); v != nil {
		return v.([]json.RawMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) UpsertVenue(ctx context.Context, v *model.Venue) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockStore) QueryVenues(ctx context.Context, f model.VenueFilter) ([]model.Venue, error) {
	args := m.Called(ctx, f)
	if v := args.Get(0); v != nil {
		return v.([]model.Venue), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Stats(ctx context.Context) (*model.VenueStats, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*model.VenueStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

func venueWithID(id string) any {
	return mock.MatchedBy(func(v *model.Venue) bool { return v.ID == id })
}
