package model

import "time"

// Alert is one concrete firing of a rule. Immutable once created except for
// the Resolved/ResolvedAt pair, which transitions exactly once.
type Alert struct {
	ID           string     `json:"id"`
	RuleName     string     `json:"rule_name"`
	Severity     Severity   `json:"severity"`
	Message      string     `json:"message"`
	MetricName   string     `json:"metric_name"`
	CurrentValue float64    `json:"current_value"`
	Threshold    float64    `json:"threshold"`
	FiredAt      time.Time  `json:"fired_at"`
	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// Snapshot is a point-in-time mapping from metric name to its current value,
// supplied by the metric source once per evaluation cycle.
type Snapshot map[string]float64

// Stats is a read-only summary of the engine state.
type Stats struct {
	ActiveAlerts      int              `json:"active_alerts"`
	TotalHistory      int              `json:"total_history"`
	SeverityBreakdown map[Severity]int `json:"severity_breakdown"`
	RulesCount        int              `json:"rules_count"`
	NotifiersCount    int              `json:"notifiers_count"`
}
