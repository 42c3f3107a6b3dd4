// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package openfda

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

func TestExtract_PopulatedBlock(t *testing.T) {
	raw := json.RawMessage(`{"openfda": {"brand_name": ["Advil"], "manufacturer_name": ["Pfizer"], "product_type": ["HUMAN OTC DRUG"], "route": ["ORAL"]}}`)

	got := Extract(raw)

	assert.False(t, got.Discard)
	assert.Equal(t, types.DrugRecord{
		BrandName:    "Advil",
		Manufacturer: "Pfizer",
		ProductType:  "HUMAN OTC DRUG",
		Route:        "ORAL",
	}, got.Record)
}

func TestExtract(t *testing.T) {
	na := types.NotAvailable
	tests := []struct {
		name        string
		raw         string
		want        types.DrugRecord
		wantDiscard bool
		reason      string
	}{
		{
			name: "missing openfda block",
			raw:  `{"id": "abc", "effective_time": "20240101"}`,
			want: types.DrugRecord{BrandName: na, Manufacturer: na, ProductType: na, Route: na},
		},
		{
			name: "empty openfda block",
			raw:  `{"openfda": {}}`,
			want: types.DrugRecord{BrandName: na, Manufacturer: na, ProductType: na, Route: na},
		},
		{
			name:        "null openfda block",
			raw:         `{"openfda": null}`,
			wantDiscard: true,
			reason:      "openfda is null",
		},
		{
			name: "partial block",
			raw:  `{"openfda": {"brand_name": ["Motrin IB"], "route": ["ORAL", "TOPICAL"]}}`,
			want: types.DrugRecord{BrandName: "Motrin IB", Manufacturer: na, ProductType: na, Route: "ORAL"},
		},
		{
			name:        "null field",
			raw:         `{"openfda": {"brand_name": null}}`,
			wantDiscard: true,
			reason:      "brand_name is null",
		},
		{
			name:        "null field after a good one",
			raw:         `{"openfda": {"brand_name": ["Advil"], "manufacturer_name": null}}`,
			wantDiscard: true,
			reason:      "manufacturer_name is null",
		},
		{
			name:        "brand name not a sequence",
			raw:         `{"openfda": {"brand_name": "Advil", "manufacturer_name": ["Pfizer"]}}`,
			wantDiscard: true,
			reason:      "brand_name is not a sequence",
		},
		{
			name:        "empty sequence",
			raw:         `{"openfda": {"brand_name": ["Advil"], "route": []}}`,
			wantDiscard: true,
			reason:      "route is empty",
		},
		{
			name: "numeric and boolean first elements kept as text",
			raw:  `{"openfda": {"brand_name": [42], "route": [true], "product_type": [1.50]}}`,
			want: types.DrugRecord{BrandName: "42", Manufacturer: na, ProductType: "1.50", Route: "true"},
		},
		{
			name:        "first element is an object",
			raw:         `{"openfda": {"product_type": [{"kind": "OTC"}]}}`,
			wantDiscard: true,
			reason:      "product_type first element is not a scalar",
		},
		{
			name:        "first element is null",
			raw:         `{"openfda": {"route": [null]}}`,
			wantDiscard: true,
			reason:      "route first element is not a scalar",
		},
		{
			name:        "openfda not an object",
			raw:         `{"openfda": ["Advil"]}`,
			wantDiscard: true,
			reason:      "openfda is not an object",
		},
		{
			name:        "record not an object",
			raw:         `["not", "a", "record"]`,
			wantDiscard: true,
			reason:      "record is not an object",
		},
		{
			name:        "null record",
			raw:         `null`,
			wantDiscard: true,
			reason:      "record is not an object",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(json.RawMessage(tt.raw))
			if got.Discard != tt.wantDiscard {
				t.Fatalf("Discard = %v, want %v (reason %q)", got.Discard, tt.wantDiscard, got.Reason)
			}
			if tt.wantDiscard {
				if !strings.Contains(got.Reason, tt.reason) {
					t.Errorf("Reason = %q, want it to contain %q", got.Reason, tt.reason)
				}
				return
			}
			if got.Record != tt.want {
				t.Errorf("Record = %+v, want %+v", got.Record, tt.want)
			}
		})
	}
}

func TestRawOpenFDA(t *testing.T) {
	assert.Equal(t, `{"brand_name": "Advil"}`, RawOpenFDA(json.RawMessage(`{"openfda": {"brand_name": "Advil"}}`)))
	assert.Equal(t, "{}", RawOpenFDA(json.RawMessage(`{"id": "x"}`)))
	assert.Equal(t, `[1]`, RawOpenFDA(json.RawMessage(`[1]`)))
}
