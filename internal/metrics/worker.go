package metrics

import "time"

// JobCompleted records a successful job run
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a failed job run
func JobFailed(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobPanicked records a job run that panicked and was recovered
func JobPanicked(jobType string) {
	JobsTotal.WithLabelValues(jobType, "panicked").Inc()
}
