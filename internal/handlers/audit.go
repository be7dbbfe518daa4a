package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/response"
)

// AuditHandler exposes the audit trail to root operators.
type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) (*AuditHandler, error) {
	if svc == nil {
		return nil, errors.New("audit handler: service is required")
	}
	return &AuditHandler{svc: svc}, nil
}

// GET /api/audit?user_id=&action=&result=&resource=&since=&until=&page=&per_page=
//
// resource accepts a trailing "*" for prefix matches. since and until are RFC 3339.
func (h *AuditHandler) List(c *gin.Context) {
	filters := services.AuditFilters{
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Action:   strings.TrimSpace(c.Query("action")),
		Result:   strings.TrimSpace(c.Query("result")),
		Resource: strings.TrimSpace(c.Query("resource")),
	}

	var err error
	if filters.Since, err = timeQuery(c, "since"); err != nil {
		response.Error(c, err)
		return
	}
	if filters.Until, err = timeQuery(c, "until"); err != nil {
		response.Error(c, err)
		return
	}
	if filters.Since != nil && filters.Until != nil && filters.Until.Before(*filters.Since) {
		response.Error(c, apperrors.NewBadRequest("until must not be before since"))
		return
	}

	page, per := pageQuery(c)
	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: per, Filters: filters})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, logs, page, per, total)
}

// timeQuery parses an optional RFC 3339 query parameter. A malformed value is a bad request.
func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewBadRequest(key + " must be an RFC 3339 timestamp")
	}
	return &t, nil
}
