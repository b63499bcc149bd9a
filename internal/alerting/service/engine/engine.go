// Package engine implements the rule-driven alert state machine: it turns
// metric snapshots into deduplicated, cooldown-suppressed alerts, tracks the
// active/resolved lifecycle, and hands fired alerts to the notification
// dispatcher.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/telemon/telemon/internal/alerting/model"
	"github.com/telemon/telemon/internal/alerting/service/notify"
	"github.com/telemon/telemon/internal/metrics"
)

// Hook observes alert lifecycle transitions. Hooks run outside the engine
// lock on a copy of the alert; they must not call back into the Manager.
type Hook func(alert model.Alert)

// Option configures a Manager.
type Option func(*Manager)

// WithMaxHistory caps the resolved-alert history at n entries, dropping the
// oldest beyond it. n <= 0 keeps history unbounded.
func WithMaxHistory(n int) Option {
	return func(m *Manager) { m.maxHistory = n }
}

// WithFiredHook registers a hook invoked for every newly fired alert.
func WithFiredHook(h Hook) Option {
	return func(m *Manager) { m.firedHooks = append(m.firedHooks, h) }
}

// WithResolvedHook registers a hook invoked for every resolved alert.
func WithResolvedHook(h Hook) Option {
	return func(m *Manager) { m.resolvedHooks = append(m.resolvedHooks, h) }
}

// Manager owns all mutable alerting state: the ordered rule registry, the
// active alert collection, and the resolved history. A single mutex covers
// one evaluation cycle end-to-end; notification dispatch happens on copied
// values after the lock is released, so slow sinks never stall evaluation
// or queries.
type Manager struct {
	dispatcher *notify.Dispatcher

	mu      sync.Mutex
	rules   []*model.Rule
	active  map[string]*model.Alert // keyed by alert ID
	history []*model.Alert          // resolved alerts, append-only up to maxHistory

	maxHistory    int
	firedHooks    []Hook
	resolvedHooks []Hook

	now func() time.Time
}

// NewManager creates an empty Manager. Rules are registered through AddRule;
// the built-in default set is available via AddDefaultRules.
func NewManager(dispatcher *notify.Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		dispatcher: dispatcher,
		active:     make(map[string]*model.Alert),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddRule validates and appends a rule to the registry. Registration order is
// evaluation order. Duplicate (name, metric) pairs are accepted and evaluated
// independently. Rules added mid-run take effect on the next cycle.
func (m *Manager) AddRule(r *model.Rule) error {
	if r == nil {
		return fmt.Errorf("nil rule")
	}
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
	log.Info().
		Str("rule", r.Name).
		Str("metric", r.MetricName).
		Str("severity", string(r.Severity)).
		Msg("alert rule registered")
	return nil
}

// HasRule reports whether a rule with the given (name, metric) identity is
// already registered.
func (m *Manager) HasRule(name, metric string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.Name == name && r.MetricName == metric {
			return true
		}
	}
	return false
}

// Rules returns read-only snapshots of the registered rules in evaluation
// order.
func (m *Manager) Rules() []model.RuleInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.RuleInfo, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r.Info())
	}
	return out
}

// Evaluate runs one evaluation cycle against the snapshot. Rules whose metric
// is absent from the snapshot are skipped. A true condition fires a new alert
// unless the rule's cooldown suppresses it; a false condition resolves the
// rule's active alert, if any. Newly fired and resolved alerts are dispatched
// after all rules have been processed and the state lock released.
// It returns the newly fired alerts.
func (m *Manager) Evaluate(ctx context.Context, snapshot model.Snapshot) []*model.Alert {
	now := m.now()

	m.mu.Lock()
	var fired, resolved []*model.Alert
	for _, rule := range m.rules {
		value, ok := snapshot[rule.MetricName]
		if !ok {
			continue
		}
		if rule.Matches(value) {
			if m.findActiveLocked(rule) != nil {
				// at most one active alert per rule identity; the existing
				// alert stays active and is not re-created
				continue
			}
			if !rule.CanFire(now) {
				// a worsening value within the cooldown window does not re-fire
				continue
			}
			alert := newAlert(rule, value, now)
			m.active[alert.ID] = alert
			rule.RecordFire(now)
			fired = append(fired, alert)
			metrics.AlertsFiredTotal.WithLabelValues(rule.Name, string(rule.Severity)).Inc()
			log.Warn().
				Str("rule", rule.Name).
				Str("metric", rule.MetricName).
				Float64("value", value).
				Str("severity", string(rule.Severity)).
				Msg("alert fired")
		} else if alert := m.findActiveLocked(rule); alert != nil {
			m.resolveLocked(alert, now)
			resolved = append(resolved, alert)
			metrics.AlertsResolvedTotal.WithLabelValues("condition").Inc()
			log.Info().
				Str("rule", rule.Name).
				Str("metric", rule.MetricName).
				Msg("alert resolved")
		}
	}
	metrics.EvalCyclesTotal.Inc()
	metrics.ActiveAlerts.Set(float64(len(m.active)))
	m.mu.Unlock()

	for _, a := range resolved {
		m.announceResolved(ctx, a)
	}
	for _, a := range fired {
		cp := *a
		m.runHooks(m.firedHooks, cp)
		if m.dispatcher != nil {
			m.dispatcher.Dispatch(ctx, &cp)
		}
	}
	return fired
}

// Resolve manually resolves an active alert by id. It returns false when the
// id is unknown or already resolved; this is a normal negative result.
func (m *Manager) Resolve(id string) bool {
	now := m.now()

	m.mu.Lock()
	alert, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.resolveLocked(alert, now)
	metrics.AlertsResolvedTotal.WithLabelValues("manual").Inc()
	metrics.ActiveAlerts.Set(float64(len(m.active)))
	m.mu.Unlock()

	log.Info().Str("rule", alert.RuleName).Str("alert_id", id).Msg("alert resolved manually")
	m.announceResolved(context.Background(), alert)
	return true
}

// ActiveAlerts returns copies of all active alerts, oldest first.
func (m *Manager) ActiveAlerts() []*model.Alert {
	m.mu.Lock()
	out := make([]*model.Alert, 0, len(m.active))
	for _, a := range m.active {
		cp := *a
		out = append(out, &cp)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.Before(out[j].FiredAt) })
	return out
}

// History returns copies of resolved alerts fired at or after since, oldest
// first.
func (m *Manager) History(since time.Time) []*model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Alert, 0, len(m.history))
	for _, a := range m.history {
		if a.FiredAt.Before(since) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// BySeverity returns copies of the active alerts with the given severity.
func (m *Manager) BySeverity(severity model.Severity) []*model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Alert
	for _, a := range m.active {
		if a.Severity == severity {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

// Stats computes a point-in-time summary of the engine state.
func (m *Manager) Stats() model.Stats {
	m.mu.Lock()
	breakdown := make(map[model.Severity]int)
	for _, a := range m.active {
		breakdown[a.Severity]++
	}
	s := model.Stats{
		ActiveAlerts:      len(m.active),
		TotalHistory:      len(m.history),
		SeverityBreakdown: breakdown,
		RulesCount:        len(m.rules),
	}
	m.mu.Unlock()

	if m.dispatcher != nil {
		s.NotifiersCount = m.dispatcher.Count()
	}
	return s
}

// findActiveLocked returns the active alert matching the rule's
// (name, metric) identity, or nil. Caller holds m.mu.
func (m *Manager) findActiveLocked(rule *model.Rule) *model.Alert {
	for _, a := range m.active {
		if a.RuleName == rule.Name && a.MetricName == rule.MetricName {
			return a
		}
	}
	return nil
}

// resolveLocked transitions an alert from active to history. The alert is
// never visible in both collections or in neither: both mutations happen
// under the same lock hold. Caller holds m.mu.
func (m *Manager) resolveLocked(alert *model.Alert, now time.Time) {
	alert.Resolved = true
	resolvedAt := now
	alert.ResolvedAt = &resolvedAt
	delete(m.active, alert.ID)
	m.history = append(m.history, alert)
	if m.maxHistory > 0 && len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

func (m *Manager) announceResolved(ctx context.Context, alert *model.Alert) {
	cp := *alert
	m.runHooks(m.resolvedHooks, cp)
	if m.dispatcher != nil {
		m.dispatcher.DispatchResolved(ctx, &cp)
	}
}

func (m *Manager) runHooks(hooks []Hook, alert model.Alert) {
	for _, h := range hooks {
		h(alert)
	}
}

func newAlert(rule *model.Rule, value float64, now time.Time) *model.Alert {
	return &model.Alert{
		ID:           uuid.NewString(),
		RuleName:     rule.Name,
		Severity:     rule.Severity,
		Message:      fmt.Sprintf("%s: %.2f %s %g", rule.Name, value, rule.Operator, rule.Threshold),
		MetricName:   rule.MetricName,
		CurrentValue: value,
		Threshold:    rule.Threshold,
		FiredAt:      now,
	}
}
