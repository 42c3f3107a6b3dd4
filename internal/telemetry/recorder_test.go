// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/fda-label-loader/internal/httputil"
	"github.com/pdiddy/fda-label-loader/pkg/types"
)

var _ httputil.Observer = (*Recorder)(nil)

func TestRecorder_RetryEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRecorder(zap.New(core))

	r.AttemptFailed(1, errors.New("API returned HTTP 503"))
	r.RetryWait(1, 1*time.Second)
	r.AttemptFailed(2, errors.New("API returned HTTP 503"))
	r.RetryWait(2, 2*time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.AttemptsFailed))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.RetryWaits))
	assert.Equal(t, float64(3), testutil.ToFloat64(r.RetryWaitSeconds))
	assert.Equal(t, float64(0), testutil.ToFloat64(r.RetriesExhausted))

	waits := logs.FilterMessage("retrying").All()
	require.Len(t, waits, 2)
	assert.Equal(t, 2*time.Second, waits[1].ContextMap()["delay"])
	assert.Len(t, logs.FilterMessage("API call failed").All(), 2)
}

func TestRecorder_Exhausted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRecorder(zap.New(core))

	r.Exhausted(3, errors.New("connection refused"))

	assert.Equal(t, float64(1), testutil.ToFloat64(r.RetriesExhausted))
	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["attempts"])
}

func TestRecorder_PipelineEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRecorder(zap.New(core))

	req := types.PageRequest{Search: "x", Limit: 100, Skip: 200}
	r.TotalObserved(250)
	r.PageFetched(req, 48, 2)
	r.RecordSkipped(req, "openfda.brand_name is not a sequence", `{"brand_name":"Advil"}`)
	r.Loaded("fda_drug_labels_safe", 48)

	assert.Equal(t, float64(250), testutil.ToFloat64(r.SourceTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.PagesFetched))
	assert.Equal(t, float64(48), testutil.ToFloat64(r.RecordsPulled))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.RecordsSkipped))
	assert.Equal(t, float64(48), testutil.ToFloat64(r.RowsLoaded))

	page := logs.FilterMessage("pulled page").All()
	require.Len(t, page, 1)
	assert.Equal(t, int64(201), page[0].ContextMap()["from"])
	assert.Equal(t, int64(250), page[0].ContextMap()["to"])

	skipped := logs.FilterMessage("skipping bad record").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, `{"brand_name":"Advil"}`, skipped[0].ContextMap()["openfda"])
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder(nil)
	r.TotalObserved(250)
	r.Loaded("t", 250)

	path := filepath.Join(t.TempDir(), "fda_loader.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fda_source_total_records 250")
	assert.Contains(t, string(data), "fda_rows_loaded_total 250")
}

func TestRecorder_RegistryCollectsAll(t *testing.T) {
	r := NewRecorder(nil)
	n, err := testutil.GatherAndCount(r.Registry())
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}
