package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/telemon/telemon/internal/alerting/model"
)

type fakeNotifier struct {
	name  string
	err   error
	block time.Duration // how long SendAlert holds before returning

	mu    sync.Mutex
	sent  int
	timed int // deliveries cut short by context deadline
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) SendAlert(ctx context.Context, _ *model.Alert) error {
	if f.block > 0 {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			f.timed++
			f.mu.Unlock()
			return ctx.Err()
		case <-time.After(f.block):
		}
	}
	f.mu.Lock()
	f.sent++
	f.mu.Unlock()
	return f.err
}

func (f *fakeNotifier) SendResolved(ctx context.Context, a *model.Alert) error {
	return f.SendAlert(ctx, a)
}

func testAlert() *model.Alert {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.Alert{
		ID:           "test-id",
		RuleName:     "High CPU Usage",
		Severity:     model.SeverityWarning,
		Message:      "High CPU Usage: 85.00 > 80",
		MetricName:   "cpu_usage",
		CurrentValue: 85,
		Threshold:    80,
		FiredAt:      now,
	}
}

func TestDispatchReachesAllSinks(t *testing.T) {
	a := &fakeNotifier{name: "a"}
	b := &fakeNotifier{name: "b"}
	d := NewDispatcher(time.Second)
	d.Register(a)
	d.Register(b)

	d.Dispatch(context.Background(), testAlert())

	if a.sent != 1 || b.sent != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", a.sent, b.sent)
	}
	if d.Count() != 2 {
		t.Fatalf("Count = %d, want 2", d.Count())
	}
}

func TestDispatchFailureIsolated(t *testing.T) {
	bad := &fakeNotifier{name: "bad", err: errors.New("unreachable")}
	good := &fakeNotifier{name: "good"}
	d := NewDispatcher(time.Second)
	d.Register(bad)
	d.Register(good)

	// must not panic or propagate the sink error
	d.Dispatch(context.Background(), testAlert())

	if good.sent != 1 {
		t.Fatalf("healthy sink skipped after failing sink")
	}
}

func TestDispatchTimeoutBoundsSlowSink(t *testing.T) {
	slow := &fakeNotifier{name: "slow", block: 5 * time.Second}
	after := &fakeNotifier{name: "after"}
	d := NewDispatcher(50 * time.Millisecond)
	d.Register(slow)
	d.Register(after)

	start := time.Now()
	d.Dispatch(context.Background(), testAlert())
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("dispatch blocked for %s despite per-sink timeout", elapsed)
	}
	slow.mu.Lock()
	timed := slow.timed
	slow.mu.Unlock()
	if timed != 1 {
		t.Fatalf("slow sink should have been cancelled by the deadline")
	}
	if after.sent != 1 {
		t.Fatalf("sink after the slow one must still be attempted")
	}
}

func TestWebhookNotifierPayloads(t *testing.T) {
	type received struct {
		path string
		body map[string]any
	}
	var mu sync.Mutex
	var got []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		got = append(got, received{r.URL.Path, body})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	alert := testAlert()

	slack := NewWebhookNotifier("ops", WebhookSlack, srv.URL+"/slack")
	if err := slack.SendAlert(ctx, alert); err != nil {
		t.Fatalf("slack send: %v", err)
	}
	generic := NewWebhookNotifier("raw", WebhookGeneric, srv.URL+"/hook")
	if err := generic.SendResolved(ctx, alert); err != nil {
		t.Fatalf("generic send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("received %d requests, want 2", len(got))
	}
	if _, ok := got[0].body["text"]; !ok {
		t.Fatalf("slack payload missing text field: %v", got[0].body)
	}
	if got[1].body["state"] != "resolved" {
		t.Fatalf("generic payload state = %v, want resolved", got[1].body["state"])
	}
}

func TestWebhookNotifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhookNotifier("", WebhookGeneric, srv.URL)
	if err := w.SendAlert(context.Background(), testAlert()); err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}

func TestTelegramNotifierSend(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL + "/botTOKEN"

	if err := n.SendAlert(context.Background(), testAlert()); err != nil {
		t.Fatalf("send alert: %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["parse_mode"] != "Markdown" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if gotBody["text"] == "" {
		t.Fatal("empty message text")
	}
}

func TestTelegramSendResolvedRequiresResolvedAt(t *testing.T) {
	n := NewTelegramNotifier("TOKEN", "42")
	if err := n.SendResolved(context.Background(), testAlert()); err == nil {
		t.Fatal("expected error for unresolved alert")
	}
}
