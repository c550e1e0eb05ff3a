package metrics

import "time"

// QuotaDecision records one CheckAndConsume outcome.
func QuotaDecision(tier string, allowed bool, reason string, tokens int64) {
	if allowed {
		QuotaDecisionsTotal.WithLabelValues(tier, "allowed", "").Inc()
		TokensConsumedTotal.WithLabelValues(tier).Add(float64(tokens))
		return
	}
	QuotaDecisionsTotal.WithLabelValues(tier, "denied", reason).Inc()
}

// StorageDecision records one EnforceLimit outcome.
func StorageDecision(tier string, allowed bool, bytes int64) {
	if allowed {
		StorageBytesAcceptedTotal.WithLabelValues(tier).Add(float64(bytes))
		return
	}
	StorageRejectionsTotal.WithLabelValues(tier).Inc()
}

// SweepFinished records the outcome of one expiry sweep.
func SweepFinished(updated, failed int, duration time.Duration) {
	SweepDowngradesTotal.Add(float64(updated))
	SweepFailuresTotal.Add(float64(failed))
	SweepDuration.Observe(duration.Seconds())
}
