package routing

import (
	"errors"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteNameKey is the gin context key holding the matched route name.
const RouteNameKey = "route_name"

// Dispatch returns a gin handler that resolves the request path (relative to
// the table prefix) and invokes the matched route's handler. Captured params
// are appended to c.Params so handlers read them with c.Param.
func (t *Table) Dispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, t.prefix) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		m, err := t.Resolve(strings.TrimPrefix(path, t.prefix), c.Request.Method)
		if err != nil {
			var mna *MethodNotAllowedError
			if errors.As(err, &mna) {
				c.Header("Allow", strings.Join(mna.Allowed, ", "))
				c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
				return
			}
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		for _, key := range slices.Sorted(maps.Keys(m.Params)) {
			c.Params = append(c.Params, gin.Param{Key: key, Value: m.Params[key]})
		}
		c.Set(RouteNameKey, m.Route.Name)
		m.Route.Handler(c)
	}
}
