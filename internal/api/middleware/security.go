package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/qworpa/qworpa/internal/config"
)

// Security redirects plain-HTTP requests to HTTPS when enabled and sets the
// standard hardening headers on every response.
func Security(cfg config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")

		if cfg.SSLRedirect && !isSecure(c.Request, cfg) {
			target := "https://" + c.Request.Host + c.Request.URL.RequestURI()
			c.Redirect(http.StatusMovedPermanently, target)
			c.Abort()
			return
		}

		c.Next()
	}
}

func isSecure(r *http.Request, cfg config.SecurityConfig) bool {
	if r.TLS != nil {
		return true
	}
	if cfg.ProxySSLHeader == "" {
		return false
	}
	return strings.EqualFold(r.Header.Get(cfg.ProxySSLHeader), cfg.ProxySSLValue)
}
