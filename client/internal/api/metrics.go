package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "taskdesk_client",
		Name:      "operations_total",
		Help:      "API operations by name and outcome (ok or error kind).",
	},
	[]string{"op", "outcome"},
)
