package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/handlers"
)

func registerToolkitRoutes(api *gin.RouterGroup, handler *handlers.ToolkitHandler) {
	toolkit := api.Group("/toolkit")
	toolkit.Use(handler.LimitBody)
	{
		toolkit.POST("/diff", handler.Diff)
		toolkit.POST("/qrcode", handler.QRCode)
		toolkit.POST("/hash", handler.Hash)
		toolkit.POST("/bcrypt", handler.Bcrypt)
		toolkit.POST("/argon2", handler.Argon2)
		toolkit.POST("/uuid", handler.UUID)
		toolkit.POST("/password", handler.Password)
		toolkit.POST("/encode", handler.Encode)
		toolkit.POST("/decode", handler.Decode)
		toolkit.POST("/json/format", handler.FormatJSON)
		toolkit.POST("/json/validate", handler.ValidateJSON)
		toolkit.POST("/json/flatten", handler.FlattenJSON)
		toolkit.POST("/json/to-yaml", handler.JSONToYAML)
		toolkit.POST("/yaml/to-json", handler.YAMLToJSON)
		toolkit.POST("/case", handler.Case)
	}
}
