package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	var seenUser string
	router := newRouter(AuthMiddleware(testSecret), func(c *gin.Context) {
		seenUser, _ = GetUserIDFromContext(c)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name     string
		header   string
		expected int
		user     string
	}{
		{"valid", "Bearer " + signToken(t, "user-1", time.Now().Add(time.Hour)), http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"malformed", "Token abc", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signToken(t, "user-1", time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + signToken(t, "", time.Now().Add(time.Hour)), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, tt.user, seenUser)
		})
	}
}

func TestModeMiddleware(t *testing.T) {
	var seen domain.Mode
	router := newRouter(ModeMiddleware(), func(c *gin.Context) {
		seen = GetModeFromCtx(c.Request.Context())
		c.Status(http.StatusOK)
	})

	for header, expected := range map[string]domain.Mode{"": domain.ModeLive, "test": domain.ModeTest, "LIVE": domain.ModeLive} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ModeHeader, header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, expected, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ModeHeader, "sandbox")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	l := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})
	router := newRouter(RateLimit(l), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestGetLoggerFromCtx_FallsBackToDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotNil(t, GetLoggerFromCtx(req.Context()))
}
