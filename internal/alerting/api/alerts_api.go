package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/telemon/telemon/internal/alerting/model"
)

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

// ListActiveAlerts returns all currently active alerts, oldest first.
func (api *Api) ListActiveAlerts(c *gin.Context) {
	alerts := api.engine.ActiveAlerts()
	c.JSON(http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// ListAlertHistory returns resolved alerts fired within the last N hours
// (default 24).
func (api *Api) ListAlertHistory(c *gin.Context) {
	hours := 24
	if s := c.Query("hours"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "hours must be a positive integer")
			return
		}
		hours = v
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	alerts := api.engine.History(since)
	c.JSON(http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts), "hours": hours})
}

// ListAlertsBySeverity filters the active alerts by severity level.
func (api *Api) ListAlertsBySeverity(c *gin.Context) {
	level := model.Severity(c.Param("level"))
	if !model.ValidSeverity(level) {
		errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "severity must be critical, warning or info")
		return
	}
	alerts := api.engine.BySeverity(level)
	if alerts == nil {
		alerts = []*model.Alert{}
	}
	c.JSON(http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
}

// GetAlertStats returns the engine statistics summary.
func (api *Api) GetAlertStats(c *gin.Context) {
	c.JSON(http.StatusOK, api.engine.Stats())
}

// ResolveAlert manually resolves an active alert by id.
func (api *Api) ResolveAlert(c *gin.Context) {
	id := c.Param("alertID")
	if !api.engine.Resolve(id) {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "no active alert with that id")
		return
	}
	c.JSON(http.StatusOK, map[string]any{"ok": true, "id": id})
}

type ruleView struct {
	Name        string  `json:"name"`
	MetricName  string  `json:"metric_name"`
	Threshold   float64 `json:"threshold"`
	Operator    string  `json:"operator"`
	Severity    string  `json:"severity"`
	Cooldown    string  `json:"cooldown"`
	LastFiredAt string  `json:"last_fired_at,omitempty"`
}

// ListRules returns the registered rules in evaluation order.
func (api *Api) ListRules(c *gin.Context) {
	rules := api.engine.Rules()
	out := make([]ruleView, 0, len(rules))
	for _, r := range rules {
		v := ruleView{
			Name:       r.Name,
			MetricName: r.MetricName,
			Threshold:  r.Threshold,
			Operator:   string(r.Operator),
			Severity:   string(r.Severity),
			Cooldown:   r.Cooldown.String(),
		}
		if !r.LastFiredAt.IsZero() {
			v.LastFiredAt = r.LastFiredAt.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, map[string]any{"rules": out, "count": len(out)})
}

type createRuleRequest struct {
	Name       string  `json:"name"`
	MetricName string  `json:"metric_name"`
	Threshold  float64 `json:"threshold"`
	Operator   string  `json:"operator"`
	Severity   string  `json:"severity"`
	Cooldown   string  `json:"cooldown"` // duration string, e.g. "5m"
}

// CreateRule registers a new rule; it takes effect on the next cycle.
func (api *Api) CreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid JSON")
		return
	}
	cooldown := time.Duration(0)
	if req.Cooldown != "" {
		var err error
		cooldown, err = time.ParseDuration(req.Cooldown)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid cooldown duration")
			return
		}
	}
	rule := &model.Rule{
		Name:       req.Name,
		MetricName: req.MetricName,
		Threshold:  req.Threshold,
		Operator:   model.Operator(req.Operator),
		Severity:   model.Severity(req.Severity),
		Cooldown:   cooldown,
	}
	if err := api.engine.AddRule(rule); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}
	c.JSON(http.StatusCreated, map[string]any{"ok": true})
}

// Evaluate accepts a metric snapshot and runs one evaluation cycle. This is
// the HTTP entry point for external drivers that collect their own metrics.
func (api *Api) Evaluate(c *gin.Context) {
	var snapshot model.Snapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_PARAMETER", "body must map metric names to numbers")
		return
	}
	fired := api.engine.Evaluate(c.Request.Context(), snapshot)
	if fired == nil {
		fired = []*model.Alert{}
	}
	c.JSON(http.StatusOK, map[string]any{"new_alerts": fired, "count": len(fired)})
}
