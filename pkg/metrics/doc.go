/*
Package metrics defines and registers the engine's Prometheus metrics:
patch commit throughput and conflicts, reducer fold duration and op
outcomes, OR-Set compaction activity, state hashing, trust evaluations, and
BTR creation/verification failures. Metrics are exposed via Handler() for
scraping.

# Usage

	timer := metrics.NewTimer()
	sha, err := patch.Commit(ctx, builder, store, codec)
	timer.ObserveDuration(metrics.PatchCommitDuration)
	if err != nil {
		if warperr.Is(err, warperr.ECASConflict) {
			metrics.PatchCommitConflicts.WithLabelValues(builder.Writer).Inc()
		}
		return err
	}
	metrics.PatchesCommitted.WithLabelValues(builder.Writer).Inc()

	http.Handle("/metrics", metrics.Handler())

All metrics are registered at package init via MustRegister; there is no
runtime registration path.
*/
package metrics
