package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for browser scrapes.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesTotal      prometheus.Counter
	RecordsTotal    prometheus.Counter
	DroppedTotal    *prometheus.CounterVec
	WarningsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ScrapeDuration  prometheus.Histogram
	StoredTotal     *prometheus.CounterVec
	EmbeddingsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outlets_pages_total",
		Help: "Result pages visited.",
	})
	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outlets_records_total",
		Help: "Outlet records extracted.",
	})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outlets_dropped_total",
		Help: "Result cards discarded during extraction, by reason.",
	}, []string{"reason"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outlets_field_warnings_total",
		Help: "Field extraction warnings, by field.",
	}, []string{"field"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outlets_retries_total",
		Help: "Retried browser steps, by step.",
	}, []string{"op"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outlets_scrape_errors_total",
		Help: "Failed scrape calls, by error kind.",
	}, []string{"error_type"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outlets_scrape_duration_seconds",
		Help:    "Wall time of a full scrape call.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})
	stored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outlets_stored_total",
		Help: "Store upserts, by result (saved, skipped, failed).",
	}, []string{"result"})
	embeddings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outlets_embeddings_total",
		Help: "Embedding lookups, by source (cache, remote, error).",
	}, []string{"source"})

	registry.MustRegister(pages, records, dropped, warnings, retries, errorsTotal, duration, stored, embeddings)

	return &Metrics{
		Registry:        registry,
		PagesTotal:      pages,
		RecordsTotal:    records,
		DroppedTotal:    dropped,
		WarningsTotal:   warnings,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		ScrapeDuration:  duration,
		StoredTotal:     stored,
		EmbeddingsTotal: embeddings,
	}
}

func (m *Metrics) IncPage() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.DroppedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncWarning(field string) {
	if m == nil {
		return
	}
	m.WarningsTotal.WithLabelValues(field).Inc()
}

func (m *Metrics) IncRetries(op string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(op).Inc()
}

// IncError increments the error counter with the ErrorKind label of err.
func (m *Metrics) IncError(err error) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(ErrorKind(err)).Inc()
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapeDuration.Observe(d.Seconds())
}

func (m *Metrics) IncStored(result string) {
	if m == nil {
		return
	}
	m.StoredTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncEmbedding(source string) {
	if m == nil {
		return
	}
	m.EmbeddingsTotal.WithLabelValues(source).Inc()
}
