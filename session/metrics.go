package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "taskdesk",
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Session transitions by event (login, register, logout, restore) and outcome.",
	},
	[]string{"event", "outcome"},
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
