package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"message": "ok"})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
}

func TestSuccessWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessWithMeta(ctx, http.StatusOK, []string{"a"}, &Meta{Page: 2, PerPage: 10, Total: 11})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	require.Equal(t, 11, resp.Meta.Total)
}

func TestPaginated(t *testing.T) {
	cases := []struct {
		total, perPage, pages int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{7, 0, 0},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(rec)

		Paginated(ctx, []string{}, 1, tc.perPage, int64(tc.total))

		resp := decode(t, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, tc.total, resp.Meta.Total)
		require.Equal(t, tc.pages, resp.Meta.TotalPages, "total=%d per_page=%d", tc.total, tc.perPage)
	}
}

func TestAck(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Ack(ctx)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, apperrors.ErrNotFound)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestErrorHidesAndLogsInternalCause(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(nil) })

	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/menu/folders", nil)
	ctx.Set("requestID", "req-9")

	Error(ctx, apperrors.ErrOperationFailed.WithInternal(errors.New("database is locked")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "database is locked")
	resp := decode(t, rec)
	require.Equal(t, "OPERATION_FAILED", resp.Error.Code)

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	require.Equal(t, "/api/menu/folders", fields["path"])
	require.Equal(t, "req-9", fields["request_id"])
}

func TestErrorWithGenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, apperrors.ErrInternalServer.Code, resp.Error.Code)
}
