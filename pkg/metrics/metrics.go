package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Patch pipeline metrics
	PatchesCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_patches_committed_total",
			Help: "Total number of patches committed by writer",
		},
		[]string{"writer"},
	)

	PatchCommitConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_patch_commit_conflicts_total",
			Help: "Total number of CAS conflicts on patch commit by writer",
		},
		[]string{"writer"},
	)

	PatchCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warp_patch_commit_duration_seconds",
			Help:    "Time taken to commit a patch through the persistence port",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Reducer metrics
	PatchesReduced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warp_patches_reduced_total",
			Help: "Total number of patches folded into a state by the reducer",
		},
	)

	ReduceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warp_reduce_duration_seconds",
			Help:    "Time taken to fold a batch of patches into a state",
			Buckets: prometheus.DefBuckets,
		},
	)

	OpOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_op_outcomes_total",
			Help: "Total number of ops classified by outcome (applied, redundant, superseded)",
		},
		[]string{"outcome"},
	)

	// OR-Set compaction metrics
	CompactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warp_orset_compactions_total",
			Help: "Total number of OR-Set compaction passes run",
		},
	)

	TombstonesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warp_orset_tombstones_dropped_total",
			Help: "Total number of tombstoned dots dropped by compaction",
		},
	)

	// State hashing metrics
	StateHashesComputed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warp_state_hashes_computed_total",
			Help: "Total number of canonical state hashes computed",
		},
	)

	// Trust subsystem metrics
	TrustRecordsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_trust_records_appended_total",
			Help: "Total number of trust records appended by record type",
		},
		[]string{"recordType"},
	)

	TrustEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_trust_evaluations_total",
			Help: "Total number of trust evaluations by verdict",
		},
		[]string{"verdict"},
	)

	TrustChainErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warp_trust_chain_errors_total",
			Help: "Total number of errors accumulated while building trust state",
		},
	)

	// BTR metrics
	BTRCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warp_btr_created_total",
			Help: "Total number of boundary transition records created",
		},
	)

	BTRVerifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warp_btr_verify_failures_total",
			Help: "Total number of BTR verification failures by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(PatchesCommitted)
	prometheus.MustRegister(PatchCommitConflicts)
	prometheus.MustRegister(PatchCommitDuration)
	prometheus.MustRegister(PatchesReduced)
	prometheus.MustRegister(ReduceDuration)
	prometheus.MustRegister(OpOutcomesTotal)
	prometheus.MustRegister(CompactionsTotal)
	prometheus.MustRegister(TombstonesDropped)
	prometheus.MustRegister(StateHashesComputed)
	prometheus.MustRegister(TrustRecordsAppended)
	prometheus.MustRegister(TrustEvaluationsTotal)
	prometheus.MustRegister(TrustChainErrors)
	prometheus.MustRegister(BTRCreated)
	prometheus.MustRegister(BTRVerifyFailures)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
