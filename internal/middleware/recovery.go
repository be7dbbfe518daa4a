package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
	"github.com/charlesng35/omnikit/pkg/response"
)

// Recovery turns a handler panic into a generic 500 envelope and logs the stack. A response
// that was already started is left as is.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error("handler panic",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(CtxRequestIDKey)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

// NotFoundHandler returns the standard error envelope for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, apperrors.NewNotFound(fmt.Sprintf("route %s not found", c.Request.URL.Path)))
}
