package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/innkeeper/internal/utils"
)

func RequireRole(allowed ...string) gin.HandlerFunc {
	allow := map[string]struct{}{}
	for _, a := range allowed {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			allow[a] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		role, _ := c.Get("role")
		s, _ := role.(string)
		if _, ok := allow[strings.ToLower(strings.TrimSpace(s))]; !ok {
			abort(c, http.StatusForbidden, utils.CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireRole("admin") }
