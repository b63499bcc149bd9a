package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/telemon/telemon/internal/alerting/model"
	"github.com/telemon/telemon/internal/metrics"
)

// DefaultSendTimeout bounds a single sink delivery when the dispatcher is
// constructed without an explicit timeout.
const DefaultSendTimeout = 10 * time.Second

// Notifier is a delivery channel for alerts. Implementations perform network
// I/O and must honor context cancellation; the dispatcher enforces a per-send
// timeout through the context it passes in.
type Notifier interface {
	Name() string
	SendAlert(ctx context.Context, alert *model.Alert) error
	SendResolved(ctx context.Context, alert *model.Alert) error
}

// Dispatcher fans a fired or resolved alert out to every registered notifier.
// Each notifier is invoked independently: a failing sink is logged and
// counted, and never affects delivery to the others or the engine state.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers []Notifier
	timeout   time.Duration
}

// NewDispatcher creates a Dispatcher with the given per-sink delivery
// timeout. A non-positive timeout falls back to DefaultSendTimeout.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// Register appends a notifier. Registration order is preserved but carries no
// delivery guarantee.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	d.notifiers = append(d.notifiers, n)
	d.mu.Unlock()
	log.Info().Str("notifier", n.Name()).Msg("notifier registered")
}

// Count returns the number of registered notifiers.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.notifiers)
}

// Dispatch delivers a fired alert to every registered notifier.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *model.Alert) {
	d.each(ctx, alert, func(ctx context.Context, n Notifier) error {
		return n.SendAlert(ctx, alert)
	})
}

// DispatchResolved announces an alert resolution to every registered notifier.
func (d *Dispatcher) DispatchResolved(ctx context.Context, alert *model.Alert) {
	d.each(ctx, alert, func(ctx context.Context, n Notifier) error {
		return n.SendResolved(ctx, alert)
	})
}

func (d *Dispatcher) each(ctx context.Context, alert *model.Alert, send func(context.Context, Notifier) error) {
	d.mu.RLock()
	notifiers := make([]Notifier, len(d.notifiers))
	copy(notifiers, d.notifiers)
	d.mu.RUnlock()

	for _, n := range notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := send(sendCtx, n)
		cancel()
		if err != nil {
			metrics.NotifyFailuresTotal.WithLabelValues(n.Name()).Inc()
			log.Error().Err(err).
				Str("notifier", n.Name()).
				Str("rule", alert.RuleName).
				Msg("notification delivery failed")
			continue
		}
		metrics.NotifySentTotal.WithLabelValues(n.Name()).Inc()
		log.Debug().
			Str("notifier", n.Name()).
			Str("rule", alert.RuleName).
			Msg("notification delivered")
	}
}
