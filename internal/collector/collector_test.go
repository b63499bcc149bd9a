package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/telemon/telemon/internal/alerting/model"
)

// fakeProm serves the Prometheus instant-query API with canned vector
// responses keyed by query string.
func fakeProm(t *testing.T, values map[string]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		query := r.Form.Get("query")
		v, ok := values[query]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
			return
		}
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[%d,"%g"]}]}}`,
			time.Now().Unix(), v)
	}))
}

func TestSnapshotFromPrometheus(t *testing.T) {
	srv := fakeProm(t, map[string]float64{
		"cpu_query": 85.5,
		"mem_query": 42,
	})
	defer srv.Close()

	c, err := NewPrometheusCollector(srv.URL, 5*time.Second, map[string]string{
		"cpu_usage":    "cpu_query",
		"memory_usage": "mem_query",
		"disk_usage":   "disk_query", // no data: absent from the snapshot
	})
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	snap := c.Snapshot(context.Background())
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2: %v", len(snap), snap)
	}
	if snap["cpu_usage"] != 85.5 || snap["memory_usage"] != 42 {
		t.Fatalf("unexpected snapshot values: %v", snap)
	}
	if _, ok := snap["disk_usage"]; ok {
		t.Fatal("metric without samples must be absent from the snapshot")
	}
}

func TestSnapshotToleratesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewPrometheusCollector(srv.URL, time.Second, map[string]string{"cpu_usage": "up"})
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	if snap := c.Snapshot(context.Background()); len(snap) != 0 {
		t.Fatalf("expected empty snapshot on server error, got %v", snap)
	}
}

type staticSource struct {
	snap model.Snapshot
}

func (s staticSource) Snapshot(context.Context) model.Snapshot { return s.snap }

type countingEvaluator struct {
	mu     sync.Mutex
	cycles int
}

func (c *countingEvaluator) Evaluate(_ context.Context, _ model.Snapshot) []*model.Alert {
	c.mu.Lock()
	c.cycles++
	c.mu.Unlock()
	return nil
}

func (c *countingEvaluator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

func TestSchedulerDrivesEvaluation(t *testing.T) {
	eval := &countingEvaluator{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartScheduler(ctx, Deps{
			Source:   staticSource{snap: model.Snapshot{"cpu_usage": 50}},
			Engine:   eval,
			Interval: 10 * time.Millisecond,
		})
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for eval.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("scheduler ran %d cycles, want >= 3", eval.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestSchedulerSkipsEmptySnapshots(t *testing.T) {
	eval := &countingEvaluator{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartScheduler(ctx, Deps{
			Source:   staticSource{snap: model.Snapshot{}},
			Engine:   eval,
			Interval: 10 * time.Millisecond,
		})
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done
	if eval.count() != 0 {
		t.Fatalf("empty snapshots must not trigger evaluation, got %d cycles", eval.count())
	}
}
