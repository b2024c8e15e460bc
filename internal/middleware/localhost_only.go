package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LocalhostOnly restricts a route group to loopback clients plus an optional
// IP/CIDR whitelist. Guards the admin endpoints (index rebuild) that mutate
// local state.
type LocalhostOnly struct {
	allowedIPs []string
}

// NewLocalhostOnly creates the restriction middleware
func NewLocalhostOnly(allowedIPs []string) *LocalhostOnly {
	return &LocalhostOnly{allowedIPs: allowedIPs}
}

// Restrict rejects requests from non-whitelisted addresses
func (l *LocalhostOnly) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !l.isAllowed(clientIP) {
			remoteIP, _, _ := net.SplitHostPort(c.Request.RemoteAddr)
			if remoteIP == clientIP || !isLoopback(remoteIP) {
				logrus.WithFields(logrus.Fields{
					"client_ip": clientIP,
					"path":      c.Request.URL.Path,
				}).Warn("Rejected admin endpoint access")
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "this endpoint is only accessible from allowed addresses",
				})
				return
			}
			// Direct loopback connection behind a misconfigured proxy header.
		}
		c.Next()
	}
}

func (l *LocalhostOnly) isAllowed(ip string) bool {
	if isLoopback(ip) {
		return true
	}

	parsed := net.ParseIP(ip)
	for _, allowed := range l.allowedIPs {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if strings.Contains(allowed, "/") {
			if _, ipNet, err := net.ParseCIDR(allowed); err == nil && parsed != nil && ipNet.Contains(parsed) {
				return true
			}
			continue
		}
		if allowed == ip {
			return true
		}
		if allowedIP := net.ParseIP(allowed); allowedIP != nil && parsed != nil && allowedIP.Equal(parsed) {
			return true
		}
	}
	return false
}

func isLoopback(ip string) bool {
	if ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
