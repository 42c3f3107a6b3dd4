// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/fda-label-loader/internal/store"
	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// RunOptions selects how a run treats the destination database.
type RunOptions struct {
	// DryRun pulls every page but never connects to the database.
	DryRun bool

	// LoadPartial commits the rows pulled before an API failure instead of
	// rolling them back. A cancelled context always rolls back.
	LoadPartial bool
}

// Runner executes one loader run: connect, ensure the table, pull every
// page, and commit the load. The database handle is owned by the run and
// closed on every path.
type Runner struct {
	cfg     types.PipelineConfig
	fetcher PageFetcher
	obs     Observer
	log     *zap.Logger
	out     io.Writer
	now     func() time.Time
}

// NewRunner returns a Runner for cfg. Human-readable status lines go to out.
func NewRunner(cfg types.PipelineConfig, fetcher PageFetcher, obs Observer, log *zap.Logger, out io.Writer) *Runner {
	if obs == nil {
		obs = NopObserver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = store.DefaultTable
	}
	return &Runner{cfg: cfg, fetcher: fetcher, obs: obs, log: log, out: out, now: time.Now}
}

func (r *Runner) driver() *Driver {
	return NewDriver(r.fetcher, DriverConfig{
		Search:            r.cfg.Source.Search,
		PageSize:          r.cfg.Source.PageSize,
		FlushEvery:        r.cfg.Database.FlushEvery,
		RequestsPerMinute: r.cfg.Source.RequestsPerMinute,
	}, r.obs, r.out)
}

// Run executes the pipeline and returns its report. The error is non-nil
// whenever the run did not pull and load every record.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (types.RunReport, error) {
	table := r.cfg.Database.Table
	report := types.RunReport{
		Search:  r.cfg.Source.Search,
		Table:   table,
		State:   types.StatePulling,
		DryRun:  opts.DryRun,
		Started: r.now(),
	}
	d := r.driver()
	report.Search = d.cfg.Search

	if opts.DryRun {
		report.Table = ""
		fmt.Fprintln(r.out, "Starting FDA pull...")
		res, err := d.Pull(ctx, nil)
		fillReport(&report, res, d.State())
		if err != nil {
			r.log.Error("pipeline stopped due to API failure", zap.Error(err))
			fmt.Fprintln(r.out, "API failed after retries - check log for details")
			return r.finish(report, err)
		}
		fmt.Fprintf(r.out, "Dry run. %d records pulled, %d skipped, nothing loaded\n", res.Pulled, res.Skipped)
		return r.finish(report, nil)
	}

	st, err := store.Open(ctx, r.cfg.Database, r.log)
	if err != nil {
		r.log.Error("database connection failed", zap.Error(err))
		fmt.Fprintln(r.out, "Database connection failed - check log for details")
		report.State = types.StateAborted
		return r.finish(report, err)
	}
	defer st.Close()

	if err := st.EnsureTable(ctx, table); err != nil {
		r.log.Error("table setup failed", zap.Error(err))
		report.State = types.StateAborted
		return r.finish(report, err)
	}

	batch, err := st.Begin(ctx, table)
	if err != nil {
		r.log.Error("could not start load transaction", zap.Error(err))
		report.State = types.StateAborted
		return r.finish(report, err)
	}
	defer batch.Rollback()

	fmt.Fprintln(r.out, "Starting FDA pull...")
	res, pullErr := d.Pull(ctx, batch)
	fillReport(&report, res, d.State())

	var abort *AbortError
	switch {
	case pullErr == nil:
	case ctx.Err() != nil:
		// The transaction is bound to ctx and already rolled back by
		// database/sql, so a partial load is not possible.
		r.log.Warn("run cancelled, load rolled back", zap.Int("rows_pulled", res.Pulled), zap.Error(pullErr))
		batch.Rollback()
		fmt.Fprintln(r.out, "Run cancelled - rolled back")
		report.State = types.StateAborted
		return r.finish(report, pullErr)
	case errors.As(pullErr, &abort) && opts.LoadPartial:
		r.log.Error("pipeline stopped, loading partial pull",
			zap.Int("skip", abort.Skip), zap.Int("rows", res.Pulled), zap.Error(abort.Err))
		fmt.Fprintln(r.out, "API failed after retries - loading records pulled so far")
		if err := batch.Insert(ctx, res.Records); err != nil {
			return r.insertFailed(report, batch, err)
		}
		res.Records = nil
	case errors.As(pullErr, &abort):
		r.log.Error("pipeline stopped due to API failure", zap.Int("skip", abort.Skip), zap.Error(abort.Err))
		batch.Rollback()
		fmt.Fprintln(r.out, "API failed after retries - check log for details")
		return r.finish(report, pullErr)
	default:
		return r.insertFailed(report, batch, pullErr)
	}

	n, err := batch.Commit()
	if err != nil {
		return r.insertFailed(report, batch, err)
	}
	report.Loaded = n
	r.obs.Loaded(table, n)
	fmt.Fprintf(r.out, "Done. %d records loaded into %s\n", n, table)
	return r.finish(report, pullErr)
}

func (r *Runner) insertFailed(report types.RunReport, batch *store.Batch, err error) (types.RunReport, error) {
	batch.Rollback()
	r.log.Error("insert failed, transaction rolled back", zap.Error(err))
	fmt.Fprintln(r.out, "Insert failed - rolled back. Check log for details")
	report.State = types.StateAborted
	report.Loaded = 0
	return r.finish(report, err)
}

func (r *Runner) finish(report types.RunReport, err error) (types.RunReport, error) {
	report.Finished = r.now()
	if err != nil {
		report.Error = err.Error()
	}
	if r.cfg.ReportPath != "" {
		if werr := WriteReport(r.cfg.ReportPath, report); werr != nil {
			r.log.Warn("run report write failed", zap.String("path", r.cfg.ReportPath), zap.Error(werr))
		}
	}
	return report, err
}

func fillReport(report *types.RunReport, res *types.PullResult, state types.PipelineState) {
	report.State = state
	if res == nil {
		return
	}
	report.Total = res.Total
	report.Pulled = res.Pulled
	report.Skipped = res.Skipped
	report.Pages = res.Pages
}
