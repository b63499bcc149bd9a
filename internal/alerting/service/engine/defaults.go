package engine

import (
	"time"

	"github.com/telemon/telemon/internal/alerting/model"
)

// DefaultRules returns the built-in rule set covering common infrastructure
// thresholds: CPU, memory and disk usage at warning/critical severities plus
// a network error counter.
func DefaultRules() []*model.Rule {
	return []*model.Rule{
		{
			Name:       "High CPU Usage",
			MetricName: "cpu_usage",
			Threshold:  80.0,
			Operator:   model.OpGreater,
			Severity:   model.SeverityWarning,
			Cooldown:   5 * time.Minute,
		},
		{
			Name:       "Critical CPU Usage",
			MetricName: "cpu_usage",
			Threshold:  95.0,
			Operator:   model.OpGreater,
			Severity:   model.SeverityCritical,
			Cooldown:   2 * time.Minute,
		},
		{
			Name:       "High Memory Usage",
			MetricName: "memory_usage",
			Threshold:  85.0,
			Operator:   model.OpGreater,
			Severity:   model.SeverityWarning,
			Cooldown:   5 * time.Minute,
		},
		{
			Name:       "Critical Memory Usage",
			MetricName: "memory_usage",
			Threshold:  95.0,
			Operator:   model.OpGreater,
			Severity:   model.SeverityCritical,
			Cooldown:   2 * time.Minute,
		},
		{
			Name:       "High Disk Usage",
			MetricName: "disk_usage",
			Threshold:  90.0,
			Operator:   model.OpGreater,
			Severity:   model.SeverityWarning,
			Cooldown:   10 * time.Minute,
		},
		{
			Name:       "Network Errors",
			MetricName: "network_errors",
			Threshold:  100.0,
			Operator:   model.OpGreater,
			Severity:   model.SeverityWarning,
			Cooldown:   5 * time.Minute,
		},
	}
}

// AddDefaultRules registers the built-in rule set. Default rules go through
// the same registration path as caller-supplied ones.
func (m *Manager) AddDefaultRules() error {
	for _, r := range DefaultRules() {
		if err := m.AddRule(r); err != nil {
			return err
		}
	}
	return nil
}
