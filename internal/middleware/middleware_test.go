package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"jobsboard-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg *config.CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestCORSEmptyWhitelistAllowsAll(t *testing.T) {
	router := corsRouter(&config.CORSConfig{})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWhitelistedOriginEchoed(t *testing.T) {
	router := corsRouter(&config.CORSConfig{
		AllowedOrigins:   []string{"https://app.example.com"},
		AllowCredentials: true,
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSUnknownOriginGetsNoAllowHeader(t *testing.T) {
	router := corsRouter(&config.CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	router := corsRouter(&config.CORSConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Token")
}

func adminRouter(allowedIPs []string) *gin.Engine {
	r := gin.New()
	guard := NewLocalhostOnly(allowedIPs)
	r.POST("/admin", guard.Restrict(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestLocalhostOnlyAllowsLoopback(t *testing.T) {
	router := adminRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.RemoteAddr = "127.0.0.1:54321"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestLocalhostOnlyRejectsRemote(t *testing.T) {
	router := adminRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestLocalhostOnlyWhitelistedIPAllowed(t *testing.T) {
	router := adminRouter([]string{"203.0.113.9"})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestLocalhostOnlyCIDRWhitelist(t *testing.T) {
	router := adminRouter([]string{"10.0.0.0/8"})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.RemoteAddr = "10.42.0.7:54321"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.RemoteAddr = "192.168.1.5:54321"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
