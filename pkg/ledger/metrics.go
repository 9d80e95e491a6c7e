package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	appendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mnemo_ledger_appends_total",
		Help: "Events durably appended to the ledger, by event type.",
	}, []string{"event_type"})

	versionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_ledger_version_conflicts_total",
		Help: "Optimistic append retries caused by concurrent writers.",
	})

	projectionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemo_ledger_projection_failures_total",
		Help: "Events persisted but not projected; read model stale until replay.",
	})
)
