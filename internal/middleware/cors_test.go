package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins...))
	r.GET("/api/menu", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestCORSAllowsAnyOriginByDefault(t *testing.T) {
	r := corsRouter()

	preflight := httptest.NewRecorder()
	r.ServeHTTP(preflight, httptest.NewRequest(http.MethodOptions, "/api/menu", nil))
	require.Equal(t, http.StatusNoContent, preflight.Code)
	require.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, preflight.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	require.Contains(t, preflight.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	require.Equal(t, RequestIDHeader, preflight.Header().Get("Access-Control-Expose-Headers"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menu", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowList(t *testing.T) {
	r := corsRouter("https://admin.example.com", " ")

	cases := map[string]string{
		"https://admin.example.com": "https://admin.example.com",
		"https://evil.example.com":  "",
	}
	for origin, want := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
		req.Header.Set("Origin", origin)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
		if want != "" {
			require.Equal(t, "Origin", w.Header().Get("Vary"))
		}
	}
}
