package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/handlers"
)

func registerAdminRoutes(api *gin.RouterGroup, settings *handlers.SettingsHandler, audit *handlers.AuditHandler, monitoring *handlers.MonitoringHandler, requireRoot gin.HandlerFunc) {
	api.GET("/settings", settings.Get)
	api.PUT("/settings", requireRoot, settings.Update)

	api.GET("/audit", requireRoot, audit.List)
	api.GET("/maintenance/jobs", requireRoot, monitoring.Jobs)
}
