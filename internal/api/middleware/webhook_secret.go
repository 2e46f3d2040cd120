package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/innkeeper/internal/utils"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret rejects requests whose X-Webhook-Secret does not match.
// An empty secret disables the check.
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid webhook secret")
			return
		}
		c.Next()
	}
}
