package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIsolated(t *testing.T) {
	a, b := New(), New()
	a.RowsParsed.WithLabelValues("comments").Add(12)
	a.RowsSkipped.WithLabelValues("comments").Inc()

	assert.Equal(t, 12.0, testutil.ToFloat64(a.RowsParsed.WithLabelValues("comments")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RowsSkipped.WithLabelValues("comments")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsParsed.WithLabelValues("comments")))
}

func TestDump(t *testing.T) {
	m := New()
	m.Fetches.WithLabelValues("ratio", "ok").Inc()
	m.Superseded.WithLabelValues("count").Inc()

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))
	out := buf.String()
	assert.Contains(t, out, `sentiboard_fetches_total{source="ratio",status="ok"} 1`)
	assert.Contains(t, out, `sentiboard_stale_responses_total{source="count"} 1`)
}
