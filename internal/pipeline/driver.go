// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline pages through label search results, extracts rows, and
// hands them to the load sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/fda-label-loader/internal/openfda"
	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// ErrLoadFailed marks a failure while handing rows to the sink.
var ErrLoadFailed = errors.New("bulk insert failed")

// AbortError reports that pulling stopped before the last page.
type AbortError struct {
	// Skip is the offset of the page that could not be fetched.
	Skip int
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("pipeline stopped at skip=%d: %v", e.Skip, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// PageFetcher fetches one page of label search results.
type PageFetcher interface {
	FetchPage(ctx context.Context, req types.PageRequest) (*openfda.Page, error)
}

// BatchWriter receives buffered rows. *store.Batch satisfies it.
type BatchWriter interface {
	Insert(ctx context.Context, rows []types.DrugRecord) error
}

// Observer receives pipeline progress events.
type Observer interface {
	TotalObserved(total int)
	PageFetched(req types.PageRequest, kept, skipped int)
	RecordSkipped(req types.PageRequest, reason, raw string)
	Loaded(table string, rows int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) TotalObserved(int)                               {}
func (NopObserver) PageFetched(types.PageRequest, int, int)         {}
func (NopObserver) RecordSkipped(types.PageRequest, string, string) {}
func (NopObserver) Loaded(string, int)                              {}

// DriverConfig holds the pagination settings.
type DriverConfig struct {
	Search   string
	PageSize int

	// FlushEvery hands buffered rows to the writer every FlushEvery pages.
	// Zero hands them over once, after the last page.
	FlushEvery int

	// RequestsPerMinute throttles page fetches. Zero disables throttling.
	RequestsPerMinute int
}

// Driver pages through a label search. It fixes the result total from the
// first page and never re-reads it, so a total that changes mid-pull is
// not detected.
type Driver struct {
	fetcher  PageFetcher
	cfg      DriverConfig
	limiter  *rate.Limiter
	obs      Observer
	progress io.Writer
	state    types.PipelineState
}

// NewDriver returns a Driver that fetches pages through f. Progress lines
// are written to w; obs may be nil.
func NewDriver(f PageFetcher, cfg DriverConfig, obs Observer, w io.Writer) *Driver {
	if cfg.PageSize <= 0 {
		cfg.PageSize = openfda.DefaultPageSize
	}
	if cfg.Search == "" {
		cfg.Search = openfda.DefaultSearch
	}
	if cfg.FlushEvery < 0 {
		cfg.FlushEvery = 0
	}
	if obs == nil {
		obs = NopObserver{}
	}
	if w == nil {
		w = io.Discard
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Driver{
		fetcher:  f,
		cfg:      cfg,
		limiter:  limiter,
		obs:      obs,
		progress: w,
		state:    types.StatePulling,
	}
}

// State returns the driver's current state.
func (d *Driver) State() types.PipelineState {
	return d.state
}

// Pull fetches pages until the offset reaches the total reported on the
// first page.
//
// With a nil writer every row stays in the returned PullResult. With a
// writer, buffered rows are handed over every FlushEvery pages and after the
// last page, and PullResult.Records holds only rows not yet handed over.
//
// On failure the partial result is returned with the error: an
// *AbortError when a page could not be fetched, or an error wrapping
// ErrLoadFailed when the writer failed.
func (d *Driver) Pull(ctx context.Context, w BatchWriter) (*types.PullResult, error) {
	d.state = types.StatePulling
	result := &types.PullResult{}
	req := types.PageRequest{Search: d.cfg.Search, Limit: d.cfg.PageSize}
	totalKnown := false
	sinceFlush := 0

	for {
		if err := ctx.Err(); err != nil {
			return result, d.abort(req, err)
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return result, d.abort(req, err)
			}
		}

		page, err := d.fetcher.FetchPage(ctx, req)
		if err != nil {
			return result, d.abort(req, err)
		}

		if !totalKnown {
			result.Total = page.Total
			totalKnown = true
			d.obs.TotalObserved(page.Total)
			fmt.Fprintf(d.progress, "Total records: %d\n", page.Total)
		}
		result.Pages++

		kept, skipped := d.extractPage(req, page, result)
		fmt.Fprintf(d.progress, "Pulled records %d to %d\n", req.Skip+1, req.Skip+len(page.Results))
		d.obs.PageFetched(req, kept, skipped)

		sinceFlush++
		if w != nil && d.cfg.FlushEvery > 0 && sinceFlush >= d.cfg.FlushEvery {
			if err := d.flush(ctx, w, result); err != nil {
				return result, err
			}
			sinceFlush = 0
		}

		req = req.Next()
		if req.Skip >= result.Total {
			break
		}
	}

	if w != nil {
		if err := d.flush(ctx, w, result); err != nil {
			return result, err
		}
	}

	d.state = types.StateDone
	fmt.Fprintf(d.progress, "API pull complete. %d records, %d skipped\n", result.Pulled, result.Skipped)
	return result, nil
}

func (d *Driver) extractPage(req types.PageRequest, page *openfda.Page, result *types.PullResult) (kept, skipped int) {
	for _, raw := range page.Results {
		ex := openfda.Extract(raw)
		if ex.Discard {
			skipped++
			d.obs.RecordSkipped(req, ex.Reason, openfda.RawOpenFDA(raw))
			continue
		}
		result.Records = append(result.Records, ex.Record)
		kept++
	}
	result.Pulled += kept
	result.Skipped += skipped
	return kept, skipped
}

// flush hands buffered rows to w and resets the buffer. On failure the
// rows stay buffered.
func (d *Driver) flush(ctx context.Context, w BatchWriter, result *types.PullResult) error {
	if len(result.Records) == 0 {
		return nil
	}
	if err := w.Insert(ctx, result.Records); err != nil {
		d.state = types.StateAborted
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	result.Records = nil
	return nil
}

func (d *Driver) abort(req types.PageRequest, err error) error {
	d.state = types.StateAborted
	return &AbortError{Skip: req.Skip, Err: err}
}
