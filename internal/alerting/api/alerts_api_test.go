package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/telemon/telemon/internal/alerting/model"
	"github.com/telemon/telemon/internal/alerting/service/engine"
	"github.com/telemon/telemon/internal/alerting/service/notify"
)

func newTestRouter(t *testing.T) (*gin.Engine, *engine.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mgr := engine.NewManager(notify.NewDispatcher(time.Second))
	NewApi(router, mgr)
	return router, mgr
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var payload map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid JSON response for %s %s: %v", method, path, err)
		}
	}
	return w.Code, payload
}

func TestEvaluateAndListAlerts(t *testing.T) {
	router, _ := newTestRouter(t)

	code, _ := doJSON(t, router, http.MethodPost, "/v1/rules",
		`{"name":"High CPU Usage","metric_name":"cpu_usage","threshold":80,"operator":">","severity":"warning","cooldown":"5m"}`)
	if code != http.StatusCreated {
		t.Fatalf("create rule: HTTP %d", code)
	}

	code, payload := doJSON(t, router, http.MethodPost, "/v1/evaluate", `{"cpu_usage": 85}`)
	if code != http.StatusOK {
		t.Fatalf("evaluate: HTTP %d", code)
	}
	if payload["count"].(float64) != 1 {
		t.Fatalf("evaluate count = %v, want 1", payload["count"])
	}

	code, payload = doJSON(t, router, http.MethodGet, "/v1/alerts", "")
	if code != http.StatusOK || payload["count"].(float64) != 1 {
		t.Fatalf("list alerts: HTTP %d payload %v", code, payload)
	}
}

func TestResolveEndpoint(t *testing.T) {
	router, mgr := newTestRouter(t)
	if err := mgr.AddRule(&model.Rule{
		Name: "r", MetricName: "m", Threshold: 1,
		Operator: model.OpGreater, Severity: model.SeverityInfo,
	}); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	_, payload := doJSON(t, router, http.MethodPost, "/v1/evaluate", `{"m": 2}`)
	alerts := payload["new_alerts"].([]any)
	id := alerts[0].(map[string]any)["id"].(string)

	code, _ := doJSON(t, router, http.MethodPost, "/v1/alerts/"+id+"/resolve", "")
	if code != http.StatusOK {
		t.Fatalf("first resolve: HTTP %d", code)
	}
	code, _ = doJSON(t, router, http.MethodPost, "/v1/alerts/"+id+"/resolve", "")
	if code != http.StatusNotFound {
		t.Fatalf("second resolve: HTTP %d, want 404", code)
	}
}

func TestSeverityEndpointValidatesLevel(t *testing.T) {
	router, _ := newTestRouter(t)
	code, _ := doJSON(t, router, http.MethodGet, "/v1/alerts/severity/fatal", "")
	if code != http.StatusBadRequest {
		t.Fatalf("HTTP %d, want 400", code)
	}
	code, payload := doJSON(t, router, http.MethodGet, "/v1/alerts/severity/critical", "")
	if code != http.StatusOK || payload["count"].(float64) != 0 {
		t.Fatalf("HTTP %d payload %v", code, payload)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router, mgr := newTestRouter(t)
	if err := mgr.AddDefaultRules(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	doJSON(t, router, http.MethodPost, "/v1/evaluate", `{"cpu_usage": 85}`)

	code, payload := doJSON(t, router, http.MethodGet, "/v1/alerts/stats", "")
	if code != http.StatusOK {
		t.Fatalf("stats: HTTP %d", code)
	}
	if payload["active_alerts"].(float64) != 1 {
		t.Fatalf("active_alerts = %v, want 1", payload["active_alerts"])
	}
	breakdown := payload["severity_breakdown"].(map[string]any)
	if breakdown["warning"].(float64) != 1 {
		t.Fatalf("severity_breakdown = %v, want warning:1", breakdown)
	}
	if payload["rules_count"].(float64) != 6 {
		t.Fatalf("rules_count = %v, want 6", payload["rules_count"])
	}
}

func TestCreateRuleRejectsInvalid(t *testing.T) {
	router, _ := newTestRouter(t)
	cases := []string{
		`{"name":"r","metric_name":"m","threshold":1,"operator":"~=","severity":"warning"}`,
		`{"name":"r","metric_name":"m","threshold":1,"operator":">","severity":"fatal"}`,
		`{"name":"r","metric_name":"m","threshold":1,"operator":">","severity":"warning","cooldown":"soon"}`,
		`not json`,
	}
	for _, body := range cases {
		if code, _ := doJSON(t, router, http.MethodPost, "/v1/rules", body); code != http.StatusBadRequest {
			t.Errorf("body %q: HTTP %d, want 400", body, code)
		}
	}
}

func TestHistoryEndpointValidatesHours(t *testing.T) {
	router, _ := newTestRouter(t)
	if code, _ := doJSON(t, router, http.MethodGet, "/v1/alerts/history?hours=0", ""); code != http.StatusBadRequest {
		t.Fatalf("hours=0: HTTP %d, want 400", code)
	}
	code, payload := doJSON(t, router, http.MethodGet, "/v1/alerts/history", "")
	if code != http.StatusOK || payload["hours"].(float64) != 24 {
		t.Fatalf("default window: HTTP %d payload %v", code, payload)
	}
}
