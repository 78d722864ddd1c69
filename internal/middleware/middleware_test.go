package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	claims *service.Claims
	err    error
}

func (s stubValidator) ValidateToken(string) (*service.Claims, error) {
	return s.claims, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func protected(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		if GetClaims(c) == nil {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func serve(r http.Handler, header, query string) int {
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireTestTakerJWT(t *testing.T) {
	ok := stubValidator{claims: &service.Claims{TokenType: service.TokenTypeTestTaker, UserID: 3}}

	assert.Equal(t, http.StatusNoContent, serve(protected(RequireTestTakerJWT(ok)), "Bearer abc", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(protected(RequireTestTakerJWT(ok)), "", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(protected(RequireTestTakerJWT(ok)), "Basic abc", ""))

	bad := stubValidator{err: errors.New("expired")}
	assert.Equal(t, http.StatusUnauthorized, serve(protected(RequireTestTakerJWT(bad)), "Bearer abc", ""))

	other := stubValidator{claims: &service.Claims{TokenType: "admin", UserID: 3}}
	assert.Equal(t, http.StatusForbidden, serve(protected(RequireTestTakerJWT(other)), "Bearer abc", ""))
}

func TestRequireTestTakerWSAuth(t *testing.T) {
	ok := stubValidator{claims: &service.Claims{TokenType: service.TokenTypeTestTaker, UserID: 3}}
	r := protected(RequireTestTakerWSAuth(ok))

	assert.Equal(t, http.StatusNoContent, serve(r, "", "?token=abc"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer abc", ""))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, "", ""))
	assert.Equal(t, http.StatusNoContent, serve(r, "", ""))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "", ""))

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, serve(r, "", ""))
}

func TestRateLimiter_KeysByTestTaker(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	assert.True(t, rl.Allow(TestTakerKey(1)))
	assert.False(t, rl.Allow(TestTakerKey(1)))
	assert.True(t, rl.Allow(TestTakerKey(2)))
}

func TestRateLimiter_Disabled(t *testing.T) {
	r := gin.New()
	r.GET("/", NewRateLimiter(0, time.Minute).Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for range 5 {
		assert.Equal(t, http.StatusNoContent, serve(r, "", ""))
	}
}
