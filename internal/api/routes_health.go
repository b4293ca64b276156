package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spryntr/waitlist/internal/app"
	"github.com/spryntr/waitlist/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Health.Enabled || mon == nil || mon.Health() == nil {
		for _, router := range []gin.IRouter{r, r.Group("/api")} {
			router.GET("/health", disabledHealthHandler)
			router.GET("/health/live", disabledHealthHandler)
			router.GET("/health/ready", disabledHealthHandler)
		}
		return
	}

	manager := mon.Health()
	registerHealthEndpoints(r, manager)
	registerHealthEndpoints(r.Group("/api"), manager)
}

func registerHealthEndpoints(router gin.IRouter, manager *monitoring.HealthManager) {
	router.GET("/health", func(c *gin.Context) {
		report := manager.EvaluateReadiness(c.Request.Context())
		c.JSON(healthStatus(report), gin.H{
			"ok":         report.OK,
			"status":     report.Status,
			"checked_at": time.Now().UTC(),
		})
	})
	router.GET("/health/live", func(c *gin.Context) {
		writeHealthReport(c, manager.EvaluateLiveness(c.Request.Context()))
	})
	router.GET("/health/ready", func(c *gin.Context) {
		writeHealthReport(c, manager.EvaluateReadiness(c.Request.Context()))
	})
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "status": "disabled"})
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	c.JSON(healthStatus(report), gin.H{
		"ok":         report.OK,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": time.Now().UTC(),
	})
}

// healthStatus answers 503 only when a probe is down. A degraded dependency,
// such as a missing email key, keeps the instance in rotation.
func healthStatus(report monitoring.HealthReport) int {
	if report.Status == monitoring.StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
