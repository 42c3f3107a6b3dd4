// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openfda fetches pages from the openFDA drug label endpoint and
// maps raw label records to flat rows.
package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/fda-label-loader/internal/httputil"
	"github.com/pdiddy/fda-label-loader/pkg/types"
)

const (
	DefaultBaseURL  = "https://api.fda.gov/drug/label.json"
	DefaultSearch   = `openfda.substance_name:"ibuprofen"`
	DefaultPageSize = 100
)

// Getter performs a GET, running decode on each 200 OK body so a garbled
// response is retried. *httputil.Gate satisfies it.
type Getter interface {
	GetDecoded(ctx context.Context, url string, header http.Header, decode httputil.DecodeFunc) ([]byte, error)
}

// Page is one decoded label search response.
type Page struct {
	// Total is meta.results.total as reported on this page.
	Total int

	// Results holds the raw records in source order.
	Results []json.RawMessage
}

// Client builds label search requests and decodes their responses.
type Client struct {
	getter    Getter
	baseURL   string
	apiKey    string
	userAgent string
}

// NewClient returns a Client that sends requests through g.
func NewClient(g Getter, src types.SourceConfig, httpCfg types.HTTPConfig) *Client {
	base := src.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		getter:    g,
		baseURL:   base,
		apiKey:    src.APIKey,
		userAgent: httpCfg.UserAgent,
	}
}

// URL returns the request URL for req.
func (c *Client) URL(req types.PageRequest) string {
	params := req.Values()
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return c.baseURL + "?" + params.Encode()
}

// FetchPage retrieves and decodes one page. An unparseable body or one
// without meta.results.total is retried like a failed request. Errors from
// the getter are returned unchanged so callers can test for
// httputil.ErrRetriesExhausted.
func (c *Client) FetchPage(ctx context.Context, req types.PageRequest) (*Page, error) {
	header := http.Header{"Accept": {"application/json"}}
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}

	var lr labelResponse
	_, err := c.getter.GetDecoded(ctx, c.URL(req), header, func(body []byte) error {
		lr = labelResponse{}
		if err := json.Unmarshal(body, &lr); err != nil {
			return fmt.Errorf("parsing label response at skip=%d: %w", req.Skip, err)
		}
		if lr.Meta.Results.Total == nil {
			return fmt.Errorf("label response at skip=%d has no meta.results.total", req.Skip)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Page{Total: *lr.Meta.Results.Total, Results: lr.Results}, nil
}

// openFDA label response envelope.
type labelResponse struct {
	Meta    labelMeta         `json:"meta"`
	Results []json.RawMessage `json:"results"`
}

type labelMeta struct {
	LastUpdated string           `json:"last_updated"`
	Results     labelMetaResults `json:"results"`
}

type labelMetaResults struct {
	Skip  int  `json:"skip"`
	Limit int  `json:"limit"`
	Total *int `json:"total"`
}
