package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/handlers"
)

func registerNoteRoutes(api *gin.RouterGroup, handler *handlers.NoteHandler) {
	notes := api.Group("/notes")
	{
		notes.GET("", handler.List)
		notes.POST("", handler.Create)
		notes.GET("/:id", handler.Get)
		notes.PATCH("/:id", handler.Update)
		notes.DELETE("/:id", handler.Delete)
	}
}
