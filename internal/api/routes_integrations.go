package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/handlers"
)

func registerIntegrationRoutes(api *gin.RouterGroup, ai *handlers.AiProviderHandler, images *handlers.ImageAccountHandler, github *handlers.GitHubTargetHandler) {
	providers := api.Group("/ai-providers")
	{
		providers.GET("", ai.List)
		providers.POST("", ai.Create)
		providers.PATCH("/:id", ai.Update)
		providers.DELETE("/:id", ai.Delete)
	}
	api.POST("/ai/chat", ai.Chat)

	accounts := api.Group("/image-accounts")
	{
		accounts.GET("", images.List)
		accounts.POST("", images.Create)
		accounts.PATCH("/:id", images.Update)
		accounts.DELETE("/:id", images.Delete)
	}

	targets := api.Group("/github-targets")
	{
		targets.GET("", github.List)
		targets.POST("", github.Create)
		targets.PATCH("/:id", github.Update)
		targets.DELETE("/:id", github.Delete)
		targets.POST("/:id/verify", github.Verify)
		targets.POST("/:id/upload", github.Upload)
	}
}
