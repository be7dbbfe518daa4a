package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, requireRoot gin.HandlerFunc) {
	api.PUT("/auth/password", handler.ChangePassword)

	users := api.Group("/users", requireRoot)
	{
		users.GET("", handler.List)
		users.POST("", handler.Create)
		users.GET("/:id", handler.Get)
		users.PATCH("/:id", handler.Update)
		users.DELETE("/:id", handler.Delete)
	}
}
