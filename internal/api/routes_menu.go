package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/handlers"
)

func registerMenuRoutes(api *gin.RouterGroup, menu *handlers.MenuHandler, tools *handlers.ToolHandler, requireRoot gin.HandlerFunc) {
	group := api.Group("/menu")
	{
		group.GET("", menu.List)
		group.POST("/tools", menu.AddTool)
		group.POST("/folders", menu.CreateFolder)
		group.POST("/compact", menu.Compact)
		group.PATCH("/:id", menu.Update)
		group.DELETE("/:id", menu.Delete)
		group.POST("/:id/move", menu.Move)
	}

	catalog := api.Group("/tools")
	{
		catalog.GET("", tools.List)
		catalog.PATCH("/:id", requireRoot, tools.SetActive)
	}
}
