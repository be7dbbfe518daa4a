package services

import (
	"context"
	"strings"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// trimmedPtr returns nil for nil or blank input and a trimmed copy otherwise.
func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringPtr(value string) *string {
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// Pagination bounds shared by every list operation.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// NormalisePage clamps page to at least 1. A page size outside 1..MaxPageSize falls
// back to DefaultPageSize.
func NormalisePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > MaxPageSize {
		perPage = DefaultPageSize
	}
	return page, perPage
}
