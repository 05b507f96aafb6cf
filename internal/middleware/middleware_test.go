package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, secret []byte, sub, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestRequireRole(t *testing.T) {
	secret := []byte("test-secret")
	InitAuth(secret)
	userID := uuid.New()

	r := gin.New()
	r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		id := CurrentUserID(c)
		require.NotNil(t, id)
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bad format", "Token abc", "", http.StatusUnauthorized},
		{"bad signature", "Bearer " + token(t, []byte("other"), userID.String(), "admin"), "", http.StatusUnauthorized},
		{"wrong role", "Bearer " + token(t, secret, userID.String(), "staff"), "", http.StatusForbidden},
		{"header ok", "Bearer " + token(t, secret, userID.String(), "admin"), "", http.StatusOK},
		{"cookie ok", "", token(t, secret, userID.String(), "admin"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := gin.New()
	r.POST("/contact", RateLimit(4, zap.New(core)), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	// burst of one for four requests per minute
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, logs.FilterMessage("rate limit exceeded").Len())

	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "limits are per client")
}

func TestRateLimiterStoreForgetsIdleVisitors(t *testing.T) {
	store := newRateLimiterStore(60)
	now := time.Now()
	store.getLimiter("a", now)
	store.getLimiter("b", now.Add(11*time.Minute))
	assert.Len(t, store.visitors, 1)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(404), entries[0].ContextMap()["status"])
}
