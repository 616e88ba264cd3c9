package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/venue-ingest/internal/metrics"
	"github.com/sells-group/venue-ingest/internal/model"
	"github.com/sells-group/venue-ingest/internal/resilience"
	"github.com/sells-group/venue-ingest/internal/source"
	"github.com/sells-group/venue-ingest/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// rawPage builds n records with publicIds prefix-0 .. prefix-(n-1).
func rawPage(prefix string, n int) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range n {
		out[i] = json.RawMessage(fmt.Sprintf(`{"publicId":"%s-%d","name":"Venue %d"}`, prefix, i, i))
	}
	return out
}

func TestHasMorePages(t *testing.T) {
	tests := []struct {
		name                          string
		records, size, page, maxPages int
		want                          bool
	}{
		{"full page below ceiling", 20, 20, 1, 5, true},
		{"short page", 19, 20, 1, 5, false},
		{"empty page", 0, 20, 1, 5, false},
		{"at ceiling", 20, 20, 5, 5, false},
		{"above ceiling", 20, 20, 6, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasMorePages(tt.records, tt.size, tt.page, tt.maxPages))
		})
	}
}

func TestRun_StopsAtMaxPages(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	for page := 1; page <= 5; page++ {
		f.On("FetchPage", mock.Anything, page, 20).Return(rawPage(strconv.Itoa(page), 20), nil).Once()
	}
	st.On("UpsertVenue", mock.Anything, mock.Anything).Return(nil)

	res := New(f, st, Options{}).Run(context.Background(), 1, 20, 5)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 5, res.TotalPagesProcessed)
	assert.Equal(t, 100, res.Saved)
	assert.NotEmpty(t, res.RunID)
	f.AssertNumberOfCalls(t, "FetchPage", 5)
	st.AssertNumberOfCalls(t, "UpsertVenue", 100)
}

func TestRun_StopsOnShortPage(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	f.On("FetchPage", mock.Anything, 1, 20).Return(rawPage("a", 20), nil).Once()
	f.On("FetchPage", mock.Anything, 2, 20).Return(rawPage("b", 20), nil).Once()
	f.On("FetchPage", mock.Anything, 3, 20).Return(rawPage("c", 7), nil).Once()
	st.On("UpsertVenue", mock.Anything, mock.Anything).Return(nil)

	res := New(f, st, Options{}).Run(context.Background(), 1, 20, 10)

	require.True(t, res.Success)
	assert.Equal(t, 3, res.TotalPagesProcessed)
	assert.Equal(t, 47, res.Saved)
	f.AssertNumberOfCalls(t, "FetchPage", 3)
	f.AssertExpectations(t)
}

func TestRun_MaxPagesIsAbsoluteCeiling(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	f.On("FetchPage", mock.Anything, 4, 2).Return(rawPage("p4", 2), nil).Once()
	f.On("FetchPage", mock.Anything, 5, 2).Return(rawPage("p5", 2), nil).Once()
	st.On("UpsertVenue", mock.Anything, mock.Anything).Return(nil)

	res := New(f, st, Options{}).Run(context.Background(), 4, 2, 5)

	require.True(t, res.Success)
	assert.Equal(t, 2, res.TotalPagesProcessed)
	f.AssertExpectations(t)
}

func TestRun_FetchFailureReportsPage(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	f.On("FetchPage", mock.Anything, 1, 3).Return(rawPage("a", 3), nil).Once()
	f.On("FetchPage", mock.Anything, 2, 3).Return(nil, errors.New("connection reset")).Once()
	st.On("UpsertVenue", mock.Anything, mock.Anything).Return(nil)

	reg := metrics.NewRegistry()
	res := New(f, st, Options{Metrics: reg}).Run(context.Background(), 1, 3, 10)

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Page)
	assert.Contains(t, res.Error, "fetch page 2")
	assert.Contains(t, res.Error, "connection reset")
	assert.Equal(t, 1, res.TotalPagesProcessed)
	assert.Equal(t, 3, res.Saved)
	st.AssertNumberOfCalls(t, "UpsertVenue", 3)
	assert.InDelta(t, 1, testutil.ToFloat64(reg.FetchFailures), 0)
}

func TestRun_InvalidArgumentsDoNotFetch(t *testing.T) {
	tests := []struct {
		name                  string
		start, size, maxPages int
	}{
		{"zero start", 0, 20, 5},
		{"negative size", 1, -1, 5},
		{"zero max pages", 1, 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFetcher{}
			res := New(f, &mockStore{}, Options{}).Run(context.Background(), tt.start, tt.size, tt.maxPages)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "invalid run arguments")
			f.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRun_SkipsUndecodableAndAnonymousRecords(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	page := []json.RawMessage{
		json.RawMessage(`{"publicId":"ok-1"}`),
		json.RawMessage(`"not an object"`),
		json.RawMessage(`{"name":"no identity"}`),
		json.RawMessage(`{"id":42}`),
	}
	f.On("FetchPage", mock.Anything, 1, 10).Return(page, nil).Once()
	st.On("UpsertVenue", mock.Anything, venueWithID("ok-1")).Return(nil).Once()
	st.On("UpsertVenue", mock.Anything, venueWithID("42")).Return(nil).Once()

	reg := metrics.NewRegistry()
	res := New(f, st, Options{Metrics: reg}).Run(context.Background(), 1, 10, 3)

	require.True(t, res.Success)
	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, 2, res.Skipped)
	assert.InDelta(t, 2, testutil.ToFloat64(reg.RecordsSkipped), 0)
	st.AssertExpectations(t)
}

func TestRun_CancelledDuringDelay(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.On("FetchPage", mock.Anything, 1, 2).Return(rawPage("a", 2), nil).Once().
		Run(func(mock.Arguments) { time.AfterFunc(20*time.Millisecond, cancel) })
	st.On("UpsertVenue", mock.Anything, mock.Anything).Return(nil)

	res := New(f, st, Options{Delay: time.Hour}).Run(ctx, 1, 2, 10)

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 1, res.TotalPagesProcessed)
	assert.Contains(t, res.Error, "interrupted before page 2")
	assert.Contains(t, res.Error, context.Canceled.Error())
	f.AssertNumberOfCalls(t, "FetchPage", 1)
}

func TestRun_CancelledDuringFinalPageUpsert(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// A short page ends the run, so only the cancel check can fail it.
	f.On("FetchPage", mock.Anything, 1, 5).Return(rawPage("a", 3), nil).Once()
	st.On("UpsertVenue", mock.Anything, venueWithID("a-0")).Return(nil).Once().
		Run(func(mock.Arguments) { cancel() })
	st.On("UpsertVenue", mock.Anything, mock.Anything).Return(context.Canceled)

	res := New(f, st, Options{}).Run(ctx, 1, 5, 10)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 2, res.Errors)
	assert.Contains(t, res.Error, "interrupted during page 1")
	assert.Empty(t, res.Message)
}

func TestRun_DelayOnlyBetweenPages(t *testing.T) {
	f := &mockFetcher{}
	st := &mockStore{}
	f.On("FetchPage", mock.Anything, 1, 1).Return(rawPage("a", 1), nil).Once()
	f.On("FetchPage", mock.Anything, 2, 1).Return([]json.RawMessage{}, nil).Once()
	st.On("UpsertVenue", mock.Anything, mock.Anything).Return(nil)

	delay := 30 * time.Millisecond
	start := time.Now()
	res := New(f, st, Options{Delay: delay}).Run(context.Background(), 1, 1, 10)
	elapsed := time.Since(start)

	require.True(t, res.Success)
	assert.Equal(t, 2, res.TotalPagesProcessed)
	assert.GreaterOrEqual(t, elapsed, delay)
	assert.Less(t, elapsed, 2*delay+time.Second)
}

func TestUpsert_PartialFailureAnyPosition(t *testing.T) {
	for failAt := range 5 {
		t.Run(fmt.Sprintf("fail_%d", failAt), func(t *testing.T) {
			st := &mockStore{}
			venues := make([]model.Venue, 5)
			for i := range venues {
				venues[i] = model.Venue{ID: fmt.Sprintf("v-%d", i)}
				ret := error(nil)
				if i == failAt {
					ret = errors.New("disk I/O error")
				}
				st.On("UpsertVenue", mock.Anything, venueWithID(venues[i].ID)).Return(ret).Once()
			}

			sum := New(&mockFetcher{}, st, Options{}).Upsert(context.Background(), venues)

			assert.Equal(t, UpsertSummary{Saved: 4, Errors: 1}, sum)
			st.AssertExpectations(t)
		})
	}
}

func TestFetchPage_WrapsPlainErrors(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchPage", mock.Anything, 3, 10).Return(nil, errors.New("boom")).Once()
	p := New(f, &mockStore{}, Options{})

	_, err := p.FetchPage(context.Background(), 3, 10)
	var fe *source.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Page)

	_, err = p.FetchPage(context.Background(), 0, 10)
	assert.ErrorIs(t, err, source.ErrInvalidPage)
}

func TestInitStorage_Delegates(t *testing.T) {
	st := &mockStore{}
	st.On("Migrate", mock.Anything).Return(nil).Once()
	require.NoError(t, New(&mockFetcher{}, st, Options{}).InitStorage(context.Background()))
	st.AssertExpectations(t)
}

func TestQueryAndStats_WrapErrors(t *testing.T) {
	st := &mockStore{}
	st.On("QueryVenues", mock.Anything, model.VenueFilter{City: "Bangkok"}).Return(nil, errors.New("locked")).Once()
	st.On("Stats", mock.Anything).Return(nil, errors.New("locked")).Once()
	p := New(&mockFetcher{}, st, Options{})

	_, err := p.QueryEntities(context.Background(), model.VenueFilter{City: "Bangkok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: query entities")

	_, err = p.GetStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: get stats")
}

func TestRun_EndToEndWithSQLite(t *testing.T) {
	pages := map[string]string{
		"1": `{"page":{"entities":[
			{"publicId":"a","name":"Jay Fai","rating":4.8,"statistic":{"numberOfReviews":900},
			 "contact":{"address":{"city":{"name":"Bangkok"}}},"delivery":{"available":true}},
			{"publicId":"b","name":"Thipsamai","rating":4.6,"contact":{"address":{"city":{"name":"Bangkok"}}}},
			{"id":77,"displayName":"Khao Soi Mae Sai","rating":4.4,"contact":{"address":{"city":{"name":"Chiang Mai"}}}}
		]}}`,
		"2": `{"page":{"entities":[
			{"publicId":"d","name":"Krua Apsorn","categories":[{"name":"Thai"}],"rating":4.5},
			{"publicId":"e","name":"Raan Jay Fai Branch","rating":3.9,"pickup":{"available":true}}
		]}}`,
	}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "3", r.URL.Query().Get("page.size"))
		body, ok := pages[r.URL.Query().Get("page.number")]
		if !ok {
			http.Error(w, "unexpected page", http.StatusBadRequest)
			return
		}
		w.Write([]byte(body)) //nolint:errcheck
	}))
	defer srv.Close()

	client, err := source.New(source.Config{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Retry:   resilience.NoRetry(),
	})
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "venues.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	ctx := context.Background()
	p := New(client, st, Options{})
	require.NoError(t, p.InitStorage(ctx))

	res := p.Run(ctx, 1, 3, 10)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.TotalPagesProcessed)
	assert.Equal(t, 5, res.Saved)
	assert.EqualValues(t, 2, hits.Load())

	stats, err := p.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Cities)
	assert.Equal(t, 1, stats.DeliveryCount)
	assert.Equal(t, 1, stats.PickupCount)

	bkk, err := p.QueryEntities(ctx, model.VenueFilter{City: "bangkok"})
	require.NoError(t, err)
	require.Len(t, bkk, 2)
	assert.Equal(t, "a", bkk[0].ID)
	assert.Equal(t, "b", bkk[1].ID)

	// A second run overwrites rather than duplicates.
	res = p.Run(ctx, 1, 3, 10)
	require.True(t, res.Success)
	stats, err = p.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
}
