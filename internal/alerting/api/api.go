package api

import (
	"github.com/gin-gonic/gin"
	"github.com/telemon/telemon/internal/alerting/service/engine"
)

type Api struct {
	engine *engine.Manager
}

// NewApi mounts the alerting query surface on the router.
func NewApi(router *gin.Engine, mgr *engine.Manager) *Api {
	api := &Api{engine: mgr}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	router.GET("/v1/alerts", api.ListActiveAlerts)
	router.GET("/v1/alerts/history", api.ListAlertHistory)
	router.GET("/v1/alerts/severity/:level", api.ListAlertsBySeverity)
	router.GET("/v1/alerts/stats", api.GetAlertStats)
	router.POST("/v1/alerts/:alertID/resolve", api.ResolveAlert)

	router.GET("/v1/rules", api.ListRules)
	router.POST("/v1/rules", api.CreateRule)

	router.POST("/v1/evaluate", api.Evaluate)
}
