package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the ingestion collectors on a private registry, so several
// sessions (and tests) never collide on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	RowsParsed  *prometheus.CounterVec
	RowsSkipped *prometheus.CounterVec
	Unknown     prometheus.Counter

	Fetches       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	Superseded    *prometheus.CounterVec

	CrawlRequests *prometheus.CounterVec
	Mismatches    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		RowsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiboard_rows_parsed_total",
				Help: "CSV rows decoded into records",
			},
			[]string{"source"}, // source: comments|ratio|count
		),
		RowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiboard_rows_skipped_total",
				Help: "Malformed CSV rows dropped by the parser",
			},
			[]string{"source"},
		),
		Unknown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentiboard_unknown_sentiment_total",
			Help: "Comment records carrying a sentiment code outside 0..2",
		}),

		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiboard_fetches_total",
				Help: "Source fetches by outcome",
			},
			[]string{"source", "status"}, // status: ok|error|superseded
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentiboard_fetch_duration_seconds",
				Help:    "Time to fetch and parse one source",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		),
		Superseded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiboard_stale_responses_total",
				Help: "Responses discarded because a newer fetch of the same source started",
			},
			[]string{"source"},
		),

		CrawlRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiboard_crawl_requests_total",
				Help: "Crawl-trigger calls by outcome",
			},
			[]string{"status"}, // status: ok|invalid|error|rate_limited
		),
		Mismatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiboard_reconcile_mismatches_total",
				Help: "Disagreements between comments, ratio and count exports",
			},
			[]string{"source"},
		),
	}

	m.Registry.MustRegister(
		m.RowsParsed,
		m.RowsSkipped,
		m.Unknown,
		m.Fetches,
		m.FetchDuration,
		m.Superseded,
		m.CrawlRequests,
		m.Mismatches,
	)
	return m
}

// Dump writes every collected family in the Prometheus text format.
func (m *Metrics) Dump(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
