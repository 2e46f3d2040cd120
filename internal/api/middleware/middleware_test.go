package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

func init() { gin.SetMode(gin.TestMode) }

func sign(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func adminRouter(cfg JWTConfig) *gin.Engine {
	r := gin.New()
	r.GET("/admin", JWTAuth(cfg), RequireAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("subject"))
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(tok string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req
}

func TestJWTAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	admin := jwt.MapClaims{"sub": "staff-1", "exp": exp, "iss": "front-desk", "aud": "innkeeper", "app_metadata": map[string]any{"role": "admin"}}
	staff := jwt.MapClaims{"sub": "staff-2", "exp": exp, "iss": "front-desk", "aud": "innkeeper"}
	expired := jwt.MapClaims{"sub": "staff-1", "exp": time.Now().Add(-time.Hour).Unix(), "app_metadata": map[string]any{"role": "admin"}}
	wrongAud := jwt.MapClaims{"sub": "staff-1", "exp": exp, "iss": "front-desk", "aud": "other", "app_metadata": map[string]any{"role": "admin"}}

	cfg := JWTConfig{Secret: testSecret, Issuer: "front-desk", Audience: "innkeeper"}
	r := adminRouter(cfg)

	w := do(r, bearer(sign(t, admin, jwt.SigningMethodHS256, []byte(testSecret))))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "staff-1", w.Body.String())

	assert.Equal(t, http.StatusForbidden, do(r, bearer(sign(t, staff, jwt.SigningMethodHS256, []byte(testSecret)))).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, bearer("")).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, bearer("not-a-jwt")).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, bearer(sign(t, admin, jwt.SigningMethodHS256, []byte("other")))).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, bearer(sign(t, admin, jwt.SigningMethodHS512, []byte(testSecret)))).Code)
	assert.Equal(t, http.StatusUnauthorized, do(adminRouter(JWTConfig{Secret: testSecret}), bearer(sign(t, expired, jwt.SigningMethodHS256, []byte(testSecret)))).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, bearer(sign(t, wrongAud, jwt.SigningMethodHS256, []byte(testSecret)))).Code)

	assert.Equal(t, http.StatusInternalServerError, do(adminRouter(JWTConfig{}), bearer("x")).Code)
}

func TestWebhookSecret(t *testing.T) {
	r := gin.New()
	r.POST("/hook", WebhookSecret("topsecret"), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set(WebhookSecretHeader, "topsecret")
	assert.Equal(t, http.StatusAccepted, do(r, req).Code)

	open := gin.New()
	open.POST("/hook", WebhookSecret(""), func(c *gin.Context) { c.Status(http.StatusAccepted) })
	assert.Equal(t, http.StatusAccepted, do(open, httptest.NewRequest(http.MethodPost, "/hook", nil)).Code)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	l, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(l))
	r.GET("/x/:conversation_id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/x/c1", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/x/c1", nil)
	req.Header.Set("X-Request-Id", "req-42")
	w = do(r, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-Id"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "req-42", entry.Data["request_id"])
	assert.Equal(t, "c1", entry.Data["conversation_id"])
	assert.Equal(t, http.StatusNoContent, entry.Data["status"])
}
