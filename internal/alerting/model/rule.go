package model

import (
	"fmt"
	"time"
)

// Operator is a comparison operator applied between an observed metric value
// and a rule threshold.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Rule defines a monitored condition: a named threshold over one metric.
// (Name, MetricName) identifies the rule; duplicates are tolerated and
// evaluated independently.
//
// All fields are set at registration time and never change afterwards.
// The last-fired timestamp is the only mutable state and is written
// exclusively by the engine while it holds its evaluation lock.
type Rule struct {
	Name       string
	MetricName string
	Threshold  float64
	Operator   Operator
	Severity   Severity
	Cooldown   time.Duration

	lastFiredAt time.Time
}

// Matches evaluates the rule condition against an observed value.
// Pure function of its inputs. ==/!= use exact float comparison; callers
// needing tolerance must pre-round. An unknown operator never matches.
func (r *Rule) Matches(value float64) bool {
	switch r.Operator {
	case OpGreater:
		return value > r.Threshold
	case OpLess:
		return value < r.Threshold
	case OpGreaterEqual:
		return value >= r.Threshold
	case OpLessEqual:
		return value <= r.Threshold
	case OpEqual:
		return value == r.Threshold
	case OpNotEqual:
		return value != r.Threshold
	}
	return false
}

// CanFire reports whether the cooldown window has elapsed. A rule that has
// never fired may always fire; otherwise now must be strictly after
// lastFiredAt+Cooldown, so a fire at the exact boundary instant is suppressed.
func (r *Rule) CanFire(now time.Time) bool {
	if r.lastFiredAt.IsZero() {
		return true
	}
	return now.After(r.lastFiredAt.Add(r.Cooldown))
}

// RecordFire marks the rule as having fired at now. Called only when an
// alert is actually created, not on every cycle where the condition holds.
func (r *Rule) RecordFire(now time.Time) {
	r.lastFiredAt = now
}

// LastFiredAt returns the time of the most recent fire, or the zero time if
// the rule has never fired.
func (r *Rule) LastFiredAt() time.Time {
	return r.lastFiredAt
}

// RuleInfo is a read-only snapshot of a rule, safe to hand out without the
// engine lock.
type RuleInfo struct {
	Name        string        `json:"name"`
	MetricName  string        `json:"metric_name"`
	Threshold   float64       `json:"threshold"`
	Operator    Operator      `json:"operator"`
	Severity    Severity      `json:"severity"`
	Cooldown    time.Duration `json:"cooldown"`
	LastFiredAt time.Time     `json:"last_fired_at"`
}

// Info captures the rule's current state. The caller must hold whatever lock
// guards the rule's fire timestamp.
func (r *Rule) Info() RuleInfo {
	return RuleInfo{
		Name:        r.Name,
		MetricName:  r.MetricName,
		Threshold:   r.Threshold,
		Operator:    r.Operator,
		Severity:    r.Severity,
		Cooldown:    r.Cooldown,
		LastFiredAt: r.lastFiredAt,
	}
}

// Validate rejects malformed rules at registration time rather than letting
// them degrade to never-firing conditions.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.MetricName == "" {
		return fmt.Errorf("rule %q: metric name is required", r.Name)
	}
	switch r.Operator {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual:
	default:
		return fmt.Errorf("rule %q: unknown operator %q", r.Name, r.Operator)
	}
	if !ValidSeverity(r.Severity) {
		return fmt.Errorf("rule %q: unknown severity %q", r.Name, r.Severity)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("rule %q: negative cooldown %s", r.Name, r.Cooldown)
	}
	return nil
}
