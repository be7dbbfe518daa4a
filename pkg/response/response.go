package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

// Response defines the base API payload. Every endpoint answers with this envelope so
// clients can branch on Success and show Error.Message verbatim.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// Meta carries pagination details for list endpoints.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta writes a JSON success response with pagination metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data any, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Paginated writes one page of a list together with its Meta.
func Paginated(c *gin.Context, data any, page, perPage int, total int64) {
	meta := &Meta{Page: page, PerPage: perPage, Total: int(total)}
	if perPage > 0 {
		meta.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	SuccessWithMeta(c, http.StatusOK, data, meta)
}

// Ack writes a bare {"success": true} response for mutations without a payload.
func Ack(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true})
}

// Error writes a JSON error response derived from an AppError. Internal causes are
// logged and never serialised.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = apperrors.ErrInternalServer
	}

	appErr := apperrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if appErr.Internal != nil && status >= http.StatusInternalServerError {
		fields := []zap.Field{zap.String("code", appErr.Code), zap.Error(appErr.Internal)}
		if c.Request != nil && c.Request.URL != nil {
			fields = append(fields, zap.String("path", c.Request.URL.Path))
		}
		// Set by the request id middleware.
		if id := c.GetString("requestID"); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		logger.WithModule("http").Error("request failed", fields...)
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
