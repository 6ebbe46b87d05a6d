package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AllowedHosts rejects requests whose Host header matches none of the
// patterns. "*" matches anything; a leading dot matches the domain and
// every subdomain.
func AllowedHosts(patterns []string) gin.HandlerFunc {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}

	return func(c *gin.Context) {
		host := requestHost(c.Request.Host)
		if !hostAllowed(host, normalized) {
			slog.Warn("Rejected request with disallowed host", "host", c.Request.Host)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid host header"})
			return
		}
		c.Next()
	}
}

func requestHost(hostport string) string {
	host := strings.ToLower(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func hostAllowed(host string, patterns []string) bool {
	if host == "" {
		return false
	}
	for _, p := range patterns {
		switch {
		case p == "*":
			return true
		case strings.HasPrefix(p, "."):
			if host == p[1:] || strings.HasSuffix(host, p) {
				return true
			}
		case host == p:
			return true
		}
	}
	return false
}
