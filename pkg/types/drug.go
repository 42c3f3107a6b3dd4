// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"net/url"
	"strconv"
	"time"
)

// NotAvailable is substituted for any label field the source omits.
const NotAvailable = "N/A"

// DrugRecord is the flat row loaded for one drug label.
type DrugRecord struct {
	BrandName    string `json:"brand_name" yaml:"brand_name"`
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	ProductType  string `json:"product_type" yaml:"product_type"`
	Route        string `json:"route" yaml:"route"`
}

// PageRequest addresses one page of label search results.
type PageRequest struct {
	Search string
	Limit  int
	Skip   int
}

// Values encodes the request as openFDA query parameters.
func (p PageRequest) Values() url.Values {
	return url.Values{
		"search": {p.Search},
		"limit":  {strconv.Itoa(p.Limit)},
		"skip":   {strconv.Itoa(p.Skip)},
	}
}

// Next returns the request for the following page.
func (p PageRequest) Next() PageRequest {
	p.Skip += p.Limit
	return p
}

// PullResult accumulates the outcome of a paginated pull.
//
// Records holds rows not yet handed to the load sink. Pulled counts every
// row extracted during the run, including rows already flushed.
type PullResult struct {
	Records []DrugRecord
	Pulled  int
	Skipped int

	// Total is the result count reported on the first successful page.
	// It is never re-read.
	Total int

	// Pages is the number of successful page fetches.
	Pages int
}

// Accounted returns Pulled + Skipped. After a complete pull against a
// stable source it equals Total.
func (r PullResult) Accounted() int {
	return r.Pulled + r.Skipped
}

// PipelineState is the pagination driver's state.
type PipelineState string

const (
	StatePulling PipelineState = "pulling"
	StateDone    PipelineState = "done"
	StateAborted PipelineState = "aborted"
)

// RunReport summarises one loader run.
type RunReport struct {
	Search   string        `json:"search" yaml:"search"`
	Table    string        `json:"table,omitempty" yaml:"table,omitempty"`
	State    PipelineState `json:"state" yaml:"state"`
	Total    int           `json:"total" yaml:"total"`
	Pulled   int           `json:"pulled" yaml:"pulled"`
	Skipped  int           `json:"skipped" yaml:"skipped"`
	Loaded   int           `json:"loaded" yaml:"loaded"`
	Pages    int           `json:"pages" yaml:"pages"`
	DryRun   bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Started  time.Time     `json:"started" yaml:"started"`
	Finished time.Time     `json:"finished" yaml:"finished"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded reports whether the run pulled everything and loaded it.
func (r RunReport) Succeeded() bool {
	return r.State == StateDone && r.Error == ""
}
