package directory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Subsystem: "directory",
			Name:      "fetches_total",
			Help:      "Directory fetches by slot and outcome.",
		},
		[]string{"slot", "outcome"},
	)

	staleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk",
			Subsystem: "directory",
			Name:      "stale_responses_total",
			Help:      "Fetch responses discarded because a newer fetch or session change superseded them.",
		},
		[]string{"slot"},
	)
)
