package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts session event processing for the /metrics endpoint.
type Metrics struct {
	eventsProcessed prometheus.Counter
	duplicateEvents prometheus.Counter
	votesTallied    prometheus.Counter
}

// NewMetrics registers the session counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		eventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "hunt_session_events_processed_total",
			Help: "Game events applied to team sessions.",
		}),
		duplicateEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "hunt_session_duplicate_events_total",
			Help: "Replayed events dropped by the idempotency ledger.",
		}),
		votesTallied: factory.NewCounter(prometheus.CounterOpts{
			Name: "hunt_session_votes_tallied_total",
			Help: "Member votes recorded across all teams.",
		}),
	}
}
