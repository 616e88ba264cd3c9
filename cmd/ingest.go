package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venue-ingest/internal/config"
	"github.com/sells-group/venue-ingest/internal/metrics"
	"github.com/sells-group/venue-ingest/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch directory pages and upsert venues",
	Long:  "Fetches pages sequentially from --start-page until a short page or page --max-pages, upserting every venue. Pages already persisted stay committed when a later page fails.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := parseIngestOpts(cmd, cfg.Source)
		if err != nil {
			return err
		}
		cfg.Source.StartPage = opts.StartPage
		cfg.Source.PageSize = opts.PageSize
		cfg.Source.MaxPages = opts.MaxPages

		env, err := initEnv(ctx, cfg, "ingest")
		if err != nil {
			return err
		}
		defer env.Close()

		return runIngest(ctx, env.Pipeline, env.Metrics, opts, cmd.OutOrStdout())
	},
}

type ingestOpts struct {
	StartPage int
	PageSize  int
	MaxPages  int
}

// parseIngestOpts reads paging flags, falling back to configured values
// for flags left unset.
func parseIngestOpts(cmd *cobra.Command, sc config.SourceConfig) (ingestOpts, error) {
	opts := ingestOpts{StartPage: sc.StartPage, PageSize: sc.PageSize, MaxPages: sc.MaxPages}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"start-page", &opts.StartPage},
		{"page-size", &opts.PageSize},
		{"max-pages", &opts.MaxPages},
	} {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		v, err := cmd.Flags().GetInt(f.name)
		if err != nil {
			return opts, eris.Wrapf(err, "parse --%s", f.name)
		}
		if v < 1 {
			return opts, eris.Errorf("--%s must be >= 1, got %d", f.name, v)
		}
		*f.dst = v
	}
	return opts, nil
}

// runIngest migrates, runs the pipeline, and prints the run summary
// followed by store stats. The counters in reg are logged once the run
// ends. A failed run is returned as an error after the summary is printed.
func runIngest(ctx context.Context, p *pipeline.Pipeline, reg *metrics.Registry, opts ingestOpts, w io.Writer) error {
	if err := p.InitStorage(ctx); err != nil {
		return err
	}

	res := p.Run(ctx, opts.StartPage, opts.PageSize, opts.MaxPages)
	printRunSummary(w, res)
	logCounters(reg, res.RunID)

	stats, err := p.GetStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := writeStatsTable(w, stats); err != nil {
		return err
	}

	if !res.Success {
		return eris.Errorf("ingest failed at page %d: %s", res.Page, res.Error)
	}
	return nil
}

func printRunSummary(w io.Writer, res *pipeline.RunResult) {
	status := "ok"
	if !res.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "run %s: %s\n", res.RunID, status)
	fmt.Fprintf(w, "  pages processed: %d\n", res.TotalPagesProcessed)
	fmt.Fprintf(w, "  saved:           %d\n", res.Saved)
	fmt.Fprintf(w, "  errored:         %d\n", res.Errors)
	fmt.Fprintf(w, "  skipped:         %d\n", res.Skipped)
	if !res.Success {
		fmt.Fprintf(w, "  failed page:     %d\n", res.Page)
		fmt.Fprintf(w, "  error:           %s\n", res.Error)
	}
}

func logCounters(reg *metrics.Registry, runID string) {
	counters, err := reg.Counters()
	if err != nil {
		zap.L().Warn("ingest: read metrics", zap.Error(err))
		return
	}
	fields := []zap.Field{zap.String("run_id", runID)}
	for name, v := range counters {
		fields = append(fields, zap.Float64(name, v))
	}
	zap.L().Info("ingest: metrics", fields...)
}

func init() {
	ingestCmd.Flags().Int("start-page", 0, "first page to fetch (default from config)")
	ingestCmd.Flags().Int("page-size", 0, "records per page (default from config)")
	ingestCmd.Flags().Int("max-pages", 0, "last page number to fetch (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
