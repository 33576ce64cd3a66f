package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uzpass/internal/document"
	"uzpass/internal/extractor"
)

func TestObserveResult(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResult(extractor.Result{
		Source: document.SourcePDF,
		Outcomes: []extractor.PageOutcome{
			{Page: 1, Kind: "no_time_found", Err: errors.New("x"), Duration: time.Millisecond},
			{Page: 2, Parser: "positional", Duration: time.Millisecond},
			{Page: 3, Parser: "positional", Duration: time.Millisecond},
		},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pages.WithLabelValues("pdf", "positional", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pages.WithLabelValues("pdf", "", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("no_time_found")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.parseDuration))
}

func TestPassesAndDuplicates(t *testing.T) {
	m := New(nil)

	m.PassIssued(nil)
	m.PassIssued(errors.New("boom"))
	m.PassIssued(nil)
	m.Duplicate()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duplicates))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResult(extractor.Result{})
		m.PassIssued(nil)
		m.Duplicate()
	})
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.Duplicate()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "uzpass_duplicate_submissions_total 1")
}
