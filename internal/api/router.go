package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-history-harvester/docs"
	"go-history-harvester/internal/api/handler"
	"go-history-harvester/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.GET("/api/v1/runs", h.ListRuns)
	r.POST("/api/v1/runs", h.TriggerRun)
	// More specific routes first
	r.GET("/api/v1/runs/*/alerts", h.GetRunAlerts)
	r.GET("/api/v1/runs/*", h.GetRun)
	r.GET("/api/v1/checkpoints", h.ListCheckpoints)
	r.GET("/api/v1/alerts", h.ListAlerts)

	r.Mount("/metrics", promhttp.Handler())
	r.Mount("/swagger/", httpSwagger.WrapHandler)
}
