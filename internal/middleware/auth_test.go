package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coursehub/internal/logger"
	"coursehub/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeResolver struct {
	users map[string]*models.User
	err   error
}

func (f fakeResolver) ResolveToken(_ context.Context, token string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[token], nil
}

func newEngine(resolver TokenResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoadUser(resolver, logger.Nop()))
	r.GET("/open", func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Nickname)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/closed", AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Nickname)
	})
	return r
}

func get(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("Bearer "))
	assert.Equal(t, "", bearerToken(""))
}

func TestLoadUser(t *testing.T) {
	r := newEngine(fakeResolver{users: map[string]*models.User{"good": {ID: 1, Nickname: "小明"}}})

	w := get(r, "/open", "Bearer good")
	assert.Equal(t, "小明", w.Body.String())

	w = get(r, "/open", "Bearer stale")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	w = get(r, "/open", "")
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestLoadUser_ResolverError(t *testing.T) {
	r := newEngine(fakeResolver{err: errors.New("db down")})
	w := get(r, "/open", "Bearer good")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestAuthRequired(t *testing.T) {
	r := newEngine(fakeResolver{users: map[string]*models.User{"good": {ID: 1, Nickname: "小明"}}})

	w := get(r, "/closed", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":{"code":"unauthorized","message":"请先登录"}}`, w.Body.String())

	w = get(r, "/closed", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "小明", w.Body.String())
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}
