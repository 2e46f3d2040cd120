package middleware

import (
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yoockh/innkeeper/internal/utils"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func abort(c *gin.Context, status int, code utils.Code, msg string) {
	c.AbortWithStatusJSON(status, apiError{Code: code, Message: msg})
}

type JWTConfig struct {
	Secret   string
	Issuer   string // optional
	Audience string // optional
}

func JWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		Secret:   os.Getenv("ADMIN_JWT_SECRET"),
		Issuer:   os.Getenv("ADMIN_JWT_ISSUER"),
		Audience: os.Getenv("ADMIN_JWT_AUDIENCE"),
	}
}

type staffClaims struct {
	jwt.RegisteredClaims
	AppMetadata map[string]any `json:"app_metadata"` // {"role":"admin"}
}

// JWTAuth validates an HS256 bearer token and exposes "subject" and "role"
// on the gin context.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	var opts []jwt.ParserOption
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(c *gin.Context) {
		if cfg.Secret == "" {
			abort(c, http.StatusInternalServerError, utils.CodeInternal, "ADMIN_JWT_SECRET is not set")
			return
		}

		auth := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if !strings.HasPrefix(auth, "Bearer ") || raw == "" {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "missing bearer token")
			return
		}

		claims := &staffClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(cfg.Secret), nil
		}, opts...)
		if err != nil || tok == nil || !tok.Valid {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token")
			return
		}

		if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "invalid token audience")
			return
		}
		if claims.Subject == "" {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "missing subject")
			return
		}

		role := "staff"
		if v, ok := claims.AppMetadata["role"].(string); ok && v != "" {
			role = v
		}

		c.Set("subject", claims.Subject)
		c.Set("role", role)
		c.Next()
	}
}
