// Package metrics defines and registers all custom Prometheus metrics for the
// account service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login calls by result.
// Labels:
//   - operation: "register" or "login"
//   - outcome: "success", "duplicate", "rejected" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of register and login attempts, by outcome.",
	},
	[]string{"operation", "outcome"},
)

// GuardDecisionsTotal counts access guard outcomes.
// Labels:
//   - outcome: "granted", "unauthenticated" or "forbidden"
//   - reason: token error kind or "missing_role"; empty when granted
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of access guard decisions.",
	},
	[]string{"outcome", "reason"},
)

// RoleAssignmentsTotal counts successful role grants by normalized role name.
var RoleAssignmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_assignments_total",
		Help:      "Total number of roles granted to accounts.",
	},
	[]string{"role"},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// ProfileCacheTotal counts profile cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var ProfileCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_cache_total",
		Help:      "Total number of profile cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsPublishedTotal counts lifecycle events by delivery result.
// Labels:
//   - topic: destination topic
//   - result: "published", "failed" or "dropped"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_events_total",
		Help:      "Total number of lifecycle events handed to the transport, by result.",
	},
	[]string{"topic", "result"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventPublishDuration measures a single transport write.
var EventPublishDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_publish_duration_seconds",
		Help:      "Duration of a single lifecycle event write to the transport.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"topic"},
)
