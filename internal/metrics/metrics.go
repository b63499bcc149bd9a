package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine metrics
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemon_alerts_fired_total",
			Help: "Total number of alerts fired",
		},
		[]string{"rule", "severity"},
	)

	AlertsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemon_alerts_resolved_total",
			Help: "Total number of alerts resolved",
		},
		[]string{"reason"}, // reason: condition, manual
	)

	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemon_active_alerts",
			Help: "Current number of active alerts",
		},
	)

	EvalCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemon_eval_cycles_total",
			Help: "Total number of evaluation cycles run",
		},
	)

	// Notification metrics
	NotifySentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemon_notify_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"notifier"},
	)

	NotifyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemon_notify_failures_total",
			Help: "Total number of notification delivery failures",
		},
		[]string{"notifier"},
	)

	// Collector metrics
	CollectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemon_collect_failures_total",
			Help: "Total number of metric collection failures",
		},
		[]string{"metric"},
	)
)
