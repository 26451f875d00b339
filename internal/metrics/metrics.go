package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement engine counters and histograms, partitioned by chain + network.

var (
	// Extractor
	ExtractorOutputsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "extractor",
		Name:      "outputs_scanned_total",
		Help:      "Total transaction outputs examined by the UTXO extractor",
	}, []string{"chain", "network"})

	ExtractorUtxosExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "extractor",
		Name:      "utxos_extracted_total",
		Help:      "Total deposit UTXOs materialized by the extractor",
	}, []string{"chain", "network"})

	ExtractorDerivationSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "extractor",
		Name:      "derivation_skips_total",
		Help:      "Total outputs skipped because no address could be derived",
	}, []string{"chain", "network"})

	ExtractorUnwatchedSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "extractor",
		Name:      "unwatched_skips_total",
		Help:      "Total P2SH outputs paying addresses not in the deposit index",
	}, []string{"chain", "network"})

	ExtractorBatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridge",
		Subsystem: "extractor",
		Name:      "batch_duration_seconds",
		Help:      "UTXO extraction duration per transaction batch",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"chain", "network"})

	// Canon advancer
	CanonAdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "canon",
		Name:      "advances_total",
		Help:      "Total successful canon pointer advancements",
	}, []string{"chain", "network"})

	CanonNoopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "canon",
		Name:      "noops_total",
		Help:      "Total canon advancement attempts that resolved to a no-op",
	}, []string{"chain", "network", "reason"})

	CanonHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bridge",
		Subsystem: "canon",
		Name:      "height",
		Help:      "Height of the current canon block",
	}, []string{"chain", "network"})

	// Pipeline
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total pipeline runs, by outcome",
	}, []string{"chain", "network", "outcome"})

	PipelineStageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "pipeline",
		Name:      "stage_errors_total",
		Help:      "Total stage failures that aborted a pipeline run",
	}, []string{"chain", "network", "stage"})

	PipelineStageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridge",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Per-stage processing duration",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"chain", "network", "stage"})

	// Submission syncer
	SyncerSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "syncer",
		Name:      "submissions_total",
		Help:      "Total submissions consumed from the ingestion stream",
	}, []string{"chain", "network"})

	SyncerDecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "syncer",
		Name:      "decode_errors_total",
		Help:      "Total submissions dropped because their payload failed to decode",
	}, []string{"chain", "network"})

	// Store
	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Total chain store I/O failures (NotFound excluded)",
	}, []string{"backend", "op"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts delivered, by channel and type",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "alerts",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts suppressed by the cooldown window",
	}, []string{"channel", "type"})
)
