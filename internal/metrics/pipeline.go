package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics holds Prometheus metrics for the scoring and aggregation
// pipeline. All counters mirror the per-run summary so dashboards can track
// health across runs without scraping run output.
type PipelineMetrics struct {
	ItemsIngested        prometheus.Counter
	ItemsRejected        *prometheus.CounterVec
	ItemsScored          *prometheus.CounterVec
	ScoringFailures      *prometheus.CounterVec
	Fallbacks            prometheus.Counter
	ItemsDeferred        prometheus.Counter
	AggregatesRecomputed prometheus.Counter
	BucketsFailed        prometheus.Counter
	StageDuration        *prometheus.HistogramVec
	HTTPErrors           *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers pipeline metrics on the given registry.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		ItemsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_ingested_total",
			Help:      "Total number of content items normalized and stored.",
		}),
		ItemsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_rejected_total",
			Help:      "Total number of raw records rejected during normalization, by reason.",
		}, []string{"reason"}),
		ItemsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_scored_total",
			Help:      "Total number of sentiment scores stored, by producing model.",
		}, []string{"model"}),
		ScoringFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_failures_total",
			Help:      "Total number of scoring failures, by failing model.",
		}, []string{"model"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_fallbacks_total",
			Help:      "Total number of items scored by the lexicon fallback after a transformer failure.",
		}),
		ItemsDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_deferred_total",
			Help:      "Total number of items left unscored for the next run after a timeout.",
		}),
		AggregatesRecomputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregates_recomputed_total",
			Help:      "Total number of daily aggregate buckets recomputed.",
		}),
		BucketsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_buckets_failed_total",
			Help:      "Total number of buckets skipped due to integrity errors.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total HTTP errors by error type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.ItemsIngested, m.ItemsRejected, m.ItemsScored, m.ScoringFailures,
		m.Fallbacks, m.ItemsDeferred, m.AggregatesRecomputed, m.BucketsFailed,
		m.StageDuration, m.HTTPErrors,
	)
	return m
}
