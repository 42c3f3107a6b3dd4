// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package openfda

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// Label field names inside a record's openfda block.
const (
	fieldBrandName    = "brand_name"
	fieldManufacturer = "manufacturer_name"
	fieldProductType  = "product_type"
	fieldRoute        = "route"
)

type fieldStatus int

const (
	fieldAbsent fieldStatus = iota
	fieldPresent
	fieldMalformed
)

// Extraction is the outcome of mapping one raw label record. Either Record
// is usable (absent fields hold types.NotAvailable) or Discard is set and
// Reason says why.
type Extraction struct {
	Record  types.DrugRecord
	Discard bool
	Reason  string
}

func discard(format string, args ...any) Extraction {
	return Extraction{Discard: true, Reason: fmt.Sprintf(format, args...)}
}

// Extract maps a raw label record to a DrugRecord. It never panics: a
// missing openfda block or field yields the sentinel, while a null or
// structurally wrong one discards the whole record.
func Extract(raw json.RawMessage) Extraction {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return discard("record is not an object")
	}

	block, err := openFDABlock(rec)
	if err != nil {
		return discard("%v", err)
	}

	var out types.DrugRecord
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{fieldBrandName, &out.BrandName},
		{fieldManufacturer, &out.Manufacturer},
		{fieldProductType, &out.ProductType},
		{fieldRoute, &out.Route},
	} {
		v, status, reason := lookupFirst(block, f.name)
		switch status {
		case fieldMalformed:
			return discard("openfda.%s %s", f.name, reason)
		case fieldAbsent:
			*f.dst = types.NotAvailable
		default:
			*f.dst = v
		}
	}
	return Extraction{Record: out}
}

// openFDABlock returns the record's openfda object, or nil when the record
// has none. An explicit null is an error.
func openFDABlock(rec map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	raw, ok := rec["openfda"]
	if !ok {
		return nil, nil
	}
	if isNull(raw) {
		return nil, fmt.Errorf("openfda is null")
	}
	var block map[string]json.RawMessage
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("openfda is not an object")
	}
	return block, nil
}

// lookupFirst validates block[name] as a non-empty array and returns its
// first element as text. Numbers and booleans keep their JSON spelling;
// null, objects and arrays are malformed.
func lookupFirst(block map[string]json.RawMessage, name string) (string, fieldStatus, string) {
	raw, ok := block[name]
	if !ok {
		return "", fieldAbsent, ""
	}
	if isNull(raw) {
		return "", fieldMalformed, "is null"
	}

	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return "", fieldMalformed, "is not a sequence"
	}
	if len(values) == 0 {
		return "", fieldMalformed, "is empty"
	}

	first, ok := scalarText(values[0])
	if !ok {
		return "", fieldMalformed, "first element is not a scalar"
	}
	return first, fieldPresent, ""
}

// scalarText renders a JSON string, number or boolean as plain text.
func scalarText(raw json.RawMessage) (string, bool) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// RawOpenFDA returns the record's openfda block as text for log entries
// about skipped records.
func RawOpenFDA(raw json.RawMessage) string {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rec); err != nil {
		return string(raw)
	}
	if block, ok := rec["openfda"]; ok {
		return string(block)
	}
	return "{}"
}
