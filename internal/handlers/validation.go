package handlers

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/response"
	appValidator "github.com/charlesng35/omnikit/pkg/validator"
)

var (
	errEmptyBody   = apperrors.NewBadRequest("request body is required")
	errInvalidJSON = apperrors.NewBadRequest("invalid JSON payload")
)

// bindAndValidate decodes the JSON body into dest and applies its validate tags.
// On failure the error response has already been written when false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	err := c.ShouldBindJSON(dest)
	if err == nil {
		err = appValidator.ValidateStruct(dest)
	}
	if err == nil {
		return true
	}

	var failures appValidator.ValidationErrors
	switch {
	case errors.Is(err, io.EOF):
		response.Error(c, errEmptyBody)
	case errors.As(err, &failures):
		response.Error(c, apperrors.NewBadRequest(failures.Error()))
	default:
		response.Error(c, errInvalidJSON)
	}
	return false
}

// pageQuery reads ?page= and ?per_page= clamped to the service bounds.
func pageQuery(c *gin.Context) (page, perPage int) {
	return services.NormalisePage(
		parseIntQuery(c, "page", 1),
		parseIntQuery(c, "per_page", services.DefaultPageSize),
	)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
