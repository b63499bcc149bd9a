package database

import (
	"context"
	"fmt"
	"time"

	"github.com/telemon/telemon/internal/alerting/model"
)

// schema for the durable alert archive. The engine keeps history in memory
// only; this table is the application-side persistence of resolved alerts.
const schema = `
CREATE TABLE IF NOT EXISTS alert_history (
	id            TEXT PRIMARY KEY,
	rule_name     TEXT NOT NULL,
	severity      TEXT NOT NULL,
	message       TEXT NOT NULL,
	metric_name   TEXT NOT NULL,
	current_value DOUBLE PRECISION NOT NULL,
	threshold     DOUBLE PRECISION NOT NULL,
	fired_at      TIMESTAMPTZ NOT NULL,
	resolved_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_alert_history_fired_at ON alert_history(fired_at);
`

// HistoryDAO persists resolved alerts.
type HistoryDAO struct {
	db *Database
}

func NewHistoryDAO(db *Database) *HistoryDAO { return &HistoryDAO{db: db} }

// EnsureSchema creates the archive table when it does not exist yet.
func (d *HistoryDAO) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure alert_history schema: %w", err)
	}
	return nil
}

// InsertAlert writes an alert's terminal state. Upsert by id so re-archiving
// after a retry is harmless.
func (d *HistoryDAO) InsertAlert(ctx context.Context, a *model.Alert) error {
	const q = `
	INSERT INTO alert_history(id, rule_name, severity, message, metric_name, current_value, threshold, fired_at, resolved_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET resolved_at = EXCLUDED.resolved_at
	`
	_, err := d.db.ExecContext(ctx, q,
		a.ID, a.RuleName, string(a.Severity), a.Message, a.MetricName,
		a.CurrentValue, a.Threshold, a.FiredAt, a.ResolvedAt)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", a.ID, err)
	}
	return nil
}

// ListSince returns archived alerts fired at or after since, oldest first.
func (d *HistoryDAO) ListSince(ctx context.Context, since time.Time) ([]*model.Alert, error) {
	const q = `
	SELECT id, rule_name, severity, message, metric_name, current_value, threshold, fired_at, resolved_at
	FROM alert_history
	WHERE fired_at >= $1
	ORDER BY fired_at ASC
	`
	rows, err := d.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("list alert history: %w", err)
	}
	defer rows.Close()

	var out []*model.Alert
	for rows.Next() {
		var a model.Alert
		var severity string
		if err := rows.Scan(&a.ID, &a.RuleName, &severity, &a.Message, &a.MetricName,
			&a.CurrentValue, &a.Threshold, &a.FiredAt, &a.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		a.Severity = model.Severity(severity)
		a.Resolved = a.ResolvedAt != nil
		out = append(out, &a)
	}
	return out, rows.Err()
}
