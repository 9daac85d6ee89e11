package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Credential metrics
	HashOperations   *prometheus.CounterVec
	HashLatency      *prometheus.HistogramVec
	AuthAttempts     *prometheus.CounterVec
	PolicyViolations prometheus.Counter

	// Expiry engine metrics
	ReconcileRuns  prometheus.Counter
	RulesReplaced  prometheus.Counter
	ExpiredDeleted prometheus.Counter

	// Notification metrics
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		HashOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hash_operations_total",
			Help:      "Total number of password hash operations by algorithm",
		}, []string{"algorithm"}),
		HashLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hash_latency_seconds",
			Help:      "Password hashing latency by algorithm",
			Buckets:   prometheus.DefBuckets,
		}, []string{"algorithm"}),
		AuthAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_attempts_total",
			Help:      "Total number of authentication attempts by outcome",
		}, []string{"outcome"}),
		PolicyViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "policy_violations_total",
			Help:      "Total number of rejected password changes",
		}),
		ReconcileRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expiry_reconcile_runs_total",
			Help:      "Total number of expiry rule reconciliations",
		}),
		RulesReplaced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expiry_rules_replaced_total",
			Help:      "Total number of stale expiry rules dropped",
		}),
		ExpiredDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "expired_users_deleted_total",
			Help:      "Total number of unvalidated users removed by the sweep",
		}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered by channel",
		}, []string{"channel"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Total number of notification failures by channel",
		}, []string{"channel"}),
	}
}
