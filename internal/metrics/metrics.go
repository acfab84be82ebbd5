// Package metrics defines package-level Prometheus metric variables for the
// session-timelimit module. Call Register() once at startup to expose them
// on the default registry, or RegisterWith() to use an isolated registry in
// tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AdmissionDecisions counts admission checks by outcome.
	// Valid outcomes: allow, deny, ignore, error.
	AdmissionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_timelimit_admission_decisions_total",
		Help: "Admission checks, by outcome (allow|deny|ignore|error).",
	}, []string{"outcome"})

	// SessionsRecorded counts session-close accounting updates persisted to
	// the state file.
	SessionsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_timelimit_sessions_recorded_total",
		Help: "Session durations successfully added to the state file.",
	})

	// StateFileErrors counts failed state-file operations (open, lock, read,
	// write).
	StateFileErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_timelimit_statefile_errors_total",
		Help: "Failed state file operations.",
	})

	// RemainingSeconds is a gauge of the remaining budget granted by the most
	// recent allowed admission, in seconds.
	RemainingSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_timelimit_last_remaining_seconds",
		Help: "Remaining daily budget granted by the last allowed admission.",
	})
)

// Register registers all metrics with prometheus.DefaultRegisterer.
// Call once at process startup.
func Register() {
	RegisterWith(prometheus.DefaultRegisterer)
}

// RegisterWith registers all metrics with the given registerer.
// Use an isolated prometheus.NewRegistry() in tests to avoid conflicts.
func RegisterWith(reg prometheus.Registerer) {
	reg.MustRegister(
		AdmissionDecisions,
		SessionsRecorded,
		StateFileErrors,
		RemainingSeconds,
	)
}
