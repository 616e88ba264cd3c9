package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunResult summarizes a paginated run.
type RunResult struct {
	RunID               string `json:"run_id" yaml:"run_id"`
	Success             bool   `json:"success" yaml:"success"`
	TotalPagesProcessed int    `json:"total_pages_processed" yaml:"total_pages_processed"`
	Message             string `json:"message,omitempty" yaml:"message,omitempty"`
	Error               string `json:"error,omitempty" yaml:"error,omitempty"`
	Page                int    `json:"page,omitempty" yaml:"page,omitempty"`
	Saved               int    `json:"saved" yaml:"saved"`
	Errors              int    `json:"errors" yaml:"errors"`
	Skipped             int    `json:"skipped" yaml:"skipped"`
}

// hasMorePages reports whether the run continues past page. A short page
// means the directory is exhausted; page is absolute, so maxPages caps the
// last page number fetched.
func hasMorePages(recordsInPage, pageSize, page, maxPages int) bool {
	return recordsInPage == pageSize && page < maxPages
}

// Run ingests pages from startPage onward, one at a time. Pages persisted
// before a failure stay committed; the result reports the failing page.
func (p *Pipeline) Run(ctx context.Context, startPage, pageSize, maxPages int) *RunResult {
	res := &RunResult{RunID: uuid.NewString()}
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", res.RunID),
		zap.Int("start_page", startPage),
		zap.Int("page_size", pageSize),
		zap.Int("max_pages", maxPages),
	)

	if startPage < 1 || pageSize < 1 || maxPages < 1 {
		res.Page = startPage
		res.Error = fmt.Sprintf("pipeline: invalid run arguments (start_page=%d page_size=%d max_pages=%d)",
			startPage, pageSize, maxPages)
		log.Error("pipeline: run rejected", zap.String("error", res.Error))
		return res
	}

	log.Info("pipeline: run started")
	for page := startPage; ; page++ {
		pageStart := time.Now()

		raws, err := p.FetchPage(ctx, page, pageSize)
		if err != nil {
			p.metrics.FetchFailed()
			res.Page = page
			res.Error = err.Error()
			log.Error("pipeline: fetch failed", zap.Int("page", page), zap.Error(err))
			return res
		}
		p.metrics.PageFetched()

		venues, skipped := normalizePage(raws, log)
		p.metrics.Skipped(skipped)
		sum := p.Upsert(ctx, venues)

		res.TotalPagesProcessed++
		res.Saved += sum.Saved
		res.Errors += sum.Errors
		res.Skipped += skipped
		p.metrics.ObservePage(time.Since(pageStart))

		log.Info("pipeline: page complete",
			zap.Int("page", page),
			zap.Int("records", len(raws)),
			zap.Int("saved", sum.Saved),
			zap.Int("errors", sum.Errors),
			zap.Int("skipped", skipped),
		)

		// A cancel mid-page leaves the page incomplete.
		if err := ctx.Err(); err != nil {
			res.Page = page
			res.Error = fmt.Sprintf("pipeline: run interrupted during page %d: %v", page, err)
			log.Warn("pipeline: run interrupted", zap.Int("page", page), zap.Error(err))
			return res
		}
		if !hasMorePages(len(raws), pageSize, page, maxPages) {
			break
		}
		if err := p.pause(ctx); err != nil {
			res.Page = page + 1
			res.Error = fmt.Sprintf("pipeline: run interrupted before page %d: %v", page+1, err)
			log.Warn("pipeline: run interrupted", zap.Int("page", page+1), zap.Error(err))
			return res
		}
	}

	res.Success = true
	res.Message = fmt.Sprintf("processed %d pages: %d saved, %d errors, %d skipped",
		res.TotalPagesProcessed, res.Saved, res.Errors, res.Skipped)
	log.Info("pipeline: run complete",
		zap.Int("pages", res.TotalPagesProcessed),
		zap.Int("saved", res.Saved),
		zap.Int("errors", res.Errors),
		zap.Int("skipped", res.Skipped),
	)
	return res
}

// pause waits out the inter-page delay or until ctx is done.
func (p *Pipeline) pause(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
