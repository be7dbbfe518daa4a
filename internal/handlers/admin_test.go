package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/omnikit/internal/handlers/testutil"
)

type settingsView struct {
	SiteTitle        string `json:"site_title"`
	Locale           string `json:"locale"`
	Theme            string `json:"theme"`
	WeatherEnabled   bool   `json:"weather_enabled"`
	WeatherCity      string `json:"weather_city"`
	HasWeatherAPIKey bool   `json:"has_weather_api_key"`
}

type auditEntry struct {
	ID        string  `json:"id"`
	UserID    *string `json:"user_id"`
	Username  string  `json:"username"`
	Action    string  `json:"action"`
	Resource  string  `json:"resource"`
	Result    string  `json:"result"`
	RequestID string  `json:"request_id"`
}

func TestSettingsHandler_ReadAndUpdate(t *testing.T) {
	env := testutil.NewEnv(t)
	_, userToken := env.LoginAs(false)
	_, rootToken := env.LoginAs(true)

	current := testutil.DecodeData[settingsView](t, env.Request(http.MethodGet, "/api/settings", nil, userToken), http.StatusOK)
	require.Equal(t, "OmniKit", current.SiteTitle)
	require.Equal(t, "zh-CN", current.Locale)
	require.Equal(t, "system", current.Theme)
	require.False(t, current.HasWeatherAPIKey)

	w := env.Request(http.MethodPut, "/api/settings", map[string]any{"theme": "dark"}, userToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPut, "/api/settings", map[string]any{"locale": "fr-FR"}, rootToken)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	w = env.Request(http.MethodPut, "/api/settings", map[string]any{"weather_enabled": true}, rootToken)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	updated := testutil.DecodeData[settingsView](t, env.Request(http.MethodPut, "/api/settings", map[string]any{
		"site_title":      "Ops Desk",
		"locale":          "en-US",
		"theme":           "dark",
		"weather_enabled": true,
		"weather_city":    "Taipei",
		"weather_api_key": "wx-secret",
	}, rootToken), http.StatusOK)
	require.Equal(t, "Ops Desk", updated.SiteTitle)
	require.Equal(t, "en-US", updated.Locale)
	require.Equal(t, "dark", updated.Theme)
	require.True(t, updated.WeatherEnabled)
	require.True(t, updated.HasWeatherAPIKey)

	w = env.Request(http.MethodGet, "/api/settings", nil, userToken)
	require.NotContains(t, w.Body.String(), "wx-secret")
	reloaded := testutil.DecodeData[settingsView](t, w, http.StatusOK)
	require.Equal(t, updated, reloaded)

	w = env.Request(http.MethodPut, "/api/settings", map[string]any{"weather_api_key": ""}, rootToken)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	cleared := testutil.DecodeData[settingsView](t, env.Request(http.MethodPut, "/api/settings", map[string]any{
		"weather_enabled": false,
		"weather_api_key": "",
	}, rootToken), http.StatusOK)
	require.False(t, cleared.WeatherEnabled)
	require.False(t, cleared.HasWeatherAPIKey)
	require.Equal(t, "Taipei", cleared.WeatherCity)
}

func TestAuditHandler_RootOnlyWithPagination(t *testing.T) {
	env := testutil.NewEnv(t)
	_, userToken := env.LoginAs(false)
	_, rootToken := env.LoginAs(true)

	w := env.Request(http.MethodGet, "/api/audit", nil, userToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	testutil.DecodeData[noteView](t, env.Request(http.MethodPost, "/api/notes", map[string]any{"title": "audited"}, rootToken), http.StatusCreated)

	w = env.Request(http.MethodGet, "/api/audit?per_page=1", nil, rootToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	require.Equal(t, 1, resp.Meta.Page)
	require.Equal(t, 1, resp.Meta.PerPage)
	require.GreaterOrEqual(t, resp.Meta.Total, 3)

	var page []auditEntry
	testutil.DecodeInto(t, resp.Data, &page)
	require.Len(t, page, 1)

	notes := testutil.DecodeData[[]auditEntry](t, env.Request(http.MethodGet, "/api/audit?action=note.create", nil, rootToken), http.StatusOK)
	require.Len(t, notes, 1)
	require.Equal(t, "success", notes[0].Result)
	require.NotNil(t, notes[0].UserID)
	require.NotEmpty(t, notes[0].Username)
	require.NotEmpty(t, notes[0].RequestID)

	testutil.RequireError(t, env.Request(http.MethodGet, "/api/audit?since=yesterday", nil, rootToken), http.StatusBadRequest, "BAD_REQUEST")
	testutil.RequireError(t, env.Request(http.MethodGet,
		"/api/audit?since=2026-01-02T00:00:00Z&until=2026-01-01T00:00:00Z", nil, rootToken), http.StatusBadRequest, "BAD_REQUEST")
}
