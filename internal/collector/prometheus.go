// Package collector produces metric snapshots for the alerting engine by
// querying a Prometheus server, and drives the periodic evaluation loop.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	promModel "github.com/prometheus/common/model"
	"github.com/rs/zerolog/log"
	"github.com/telemon/telemon/internal/alerting/model"
	"github.com/telemon/telemon/internal/metrics"
)

// DefaultQueries maps snapshot metric names to the node-exporter expressions
// backing them.
func DefaultQueries() map[string]string {
	return map[string]string{
		"cpu_usage":      `100 - (avg(rate(node_cpu_seconds_total{mode="idle"}[5m])) * 100)`,
		"memory_usage":   `100 * (1 - (node_memory_MemAvailable_bytes / node_memory_MemTotal_bytes))`,
		"disk_usage":     `100 - ((node_filesystem_avail_bytes{mountpoint="/"} * 100) / node_filesystem_size_bytes{mountpoint="/"})`,
		"network_errors": `sum(increase(node_network_receive_errs_total[5m])) + sum(increase(node_network_transmit_errs_total[5m]))`,
	}
}

// PrometheusCollector builds snapshots from instant queries against a
// Prometheus server.
type PrometheusCollector struct {
	api     v1.API
	queries map[string]string
	timeout time.Duration
}

// NewPrometheusCollector creates a collector for the given server address.
// A nil queries map uses DefaultQueries.
func NewPrometheusCollector(address string, timeout time.Duration, queries map[string]string) (*PrometheusCollector, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client: %w", err)
	}
	if queries == nil {
		queries = DefaultQueries()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PrometheusCollector{
		api:     v1.NewAPI(client),
		queries: queries,
		timeout: timeout,
	}, nil
}

// Snapshot runs every configured query and assembles the results into one
// snapshot. Queries that fail or return no samples leave their metric absent;
// the engine skips rules for absent metrics, so partial snapshots are safe.
func (c *PrometheusCollector) Snapshot(ctx context.Context) model.Snapshot {
	snap := make(model.Snapshot, len(c.queries))
	for name, query := range c.queries {
		value, ok := c.queryScalar(ctx, name, query)
		if !ok {
			continue
		}
		snap[name] = value
	}
	return snap
}

func (c *PrometheusCollector) queryScalar(ctx context.Context, name, query string) (float64, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, warnings, err := c.api.Query(ctx, query, time.Now())
	if err != nil {
		metrics.CollectFailuresTotal.WithLabelValues(name).Inc()
		log.Error().Err(err).Str("metric", name).Msg("prometheus query failed")
		return 0, false
	}
	if len(warnings) > 0 {
		log.Warn().Strs("warnings", warnings).Str("metric", name).Msg("prometheus query warnings")
	}

	switch v := result.(type) {
	case promModel.Vector:
		if len(v) == 0 {
			return 0, false
		}
		return float64(v[0].Value), true
	case *promModel.Scalar:
		return float64(v.Value), true
	default:
		metrics.CollectFailuresTotal.WithLabelValues(name).Inc()
		log.Error().Str("metric", name).Msgf("unexpected result type %T", result)
		return 0, false
	}
}
