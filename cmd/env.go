package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venue-ingest/internal/config"
	"github.com/sells-group/venue-ingest/internal/metrics"
	"github.com/sells-group/venue-ingest/internal/pipeline"
	"github.com/sells-group/venue-ingest/internal/source"
	"github.com/sells-group/venue-ingest/internal/store"
)

// appEnv holds the dependencies shared by every command. The store stays
// open for the lifetime of the command.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Registry
}

// Close releases the store.
func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initEnv validates c for mode and builds the store, source client and
// pipeline.
func initEnv(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	client, err := source.New(source.Config{
		BaseURL:       c.Source.BaseURL,
		Headers:       c.Source.Headers,
		Params:        c.Source.Params,
		Timeout:       c.Source.Timeout(),
		RatePerSecond: c.Source.RatePerSecond,
		Retry:         c.Retry.Resilience(),
		MaxBodyBytes:  c.Source.MaxBodyBytes,
	})
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "init source client")
	}

	reg := metrics.NewRegistry()
	return &appEnv{
		Store:    st,
		Metrics:  reg,
		Pipeline: pipeline.New(client, st, pipeline.Options{Delay: c.Source.Delay(), Metrics: reg}),
	}, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		return store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{MaxConns: sc.MaxConns})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
