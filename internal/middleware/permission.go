package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/metrics"
	"github.com/charlesng35/omnikit/pkg/response"
)

// RequireRoot only lets active root users through. It guards installation-wide resources such
// as the tool catalog, system settings and the audit trail.
func RequireRoot(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		var user models.User
		err := db.WithContext(c.Request.Context()).Select("id", "is_root", "is_active").Take(&user, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if err != nil {
			metrics.AccessChecks.WithLabelValues("root", "error").Inc()
			response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if !user.IsRoot || !user.IsActive {
			metrics.AccessChecks.WithLabelValues("root", "denied").Inc()
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.AccessChecks.WithLabelValues("root", "allowed").Inc()
		c.Next()
	}
}
