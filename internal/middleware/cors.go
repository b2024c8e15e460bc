// Package middleware holds the gin middleware shared across routes.
package middleware

import (
	"net/http"
	"strconv"

	"jobsboard-backend/internal/config"

	"github.com/gin-gonic/gin"
)

// CORS applies the configured origin whitelist. An empty whitelist allows
// every origin, which suits local single-operator deployments.
func CORS(cfg *config.CORSConfig) gin.HandlerFunc {
	allowAll := cfg == nil || len(cfg.AllowedOrigins) == 0

	allowed := make(map[string]bool)
	allowCredentials := false
	maxAge := 43200
	if cfg != nil {
		for _, origin := range cfg.AllowedOrigins {
			allowed[origin] = true
		}
		allowCredentials = cfg.AllowCredentials
		if cfg.MaxAge > 0 {
			maxAge = cfg.MaxAge
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			if allowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Token, X-Wallet")
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
