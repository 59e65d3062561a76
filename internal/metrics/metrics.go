package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "payment_submissions_total",
			Help:      "Payment submissions by outcome (accepted or error kind)",
		},
		[]string{"outcome"},
	)

	PollOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "payment_poll_outcomes_total",
			Help:      "Terminal states reached by payment polling",
		},
		[]string{"state"},
	)

	PollAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "payment_poll_attempts",
			Help:      "Status queries issued before a session reached a terminal state",
			Buckets:   []float64{1, 2, 3, 5, 8, 12, 16, 20, 24, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(SubmissionsTotal, PollOutcomesTotal, PollAttempts)
}

func IncSubmission(outcome string) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func IncPollOutcome(state string) {
	PollOutcomesTotal.WithLabelValues(state).Inc()
}

func ObserveAttempts(n int) {
	PollAttempts.Observe(float64(n))
}
