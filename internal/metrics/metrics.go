package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eventplanner"

// Registry holds every eventplanner collector. It is served on /metrics.
var Registry = prometheus.NewRegistry()

// MembershipMutations counts membership operations by outcome.
// outcome: changed|unchanged|error
var MembershipMutations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_mutations_total",
		Help:      "Total number of membership mutations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// HubSubscribers tracks the number of live hub subscriptions.
var HubSubscribers = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_subscribers",
		Help:      "Current number of notification hub subscribers",
	},
)

// NotificationsPublished counts notifications handed to the hub.
var NotificationsPublished = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_published_total",
		Help:      "Total number of notifications published to the hub",
	},
	[]string{"topic"},
)

// NotificationsDropped counts notifications lost to a full buffer.
// stage: queue (dispatcher) | subscriber (per-subscription buffer)
var NotificationsDropped = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Total number of notifications dropped because a buffer was full",
	},
	[]string{"stage"},
)

// Init registers the runtime collectors. Call once at startup.
func Init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
