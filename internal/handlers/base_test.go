package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestFail_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := base{log: logger.Nop()}

	cases := []struct {
		err    error
		status int
	}{
		{errors.Join(services.ErrInvalidInput, errors.New("x")), http.StatusBadRequest},
		{errors.Join(services.ErrNotFound, errors.New("x")), http.StatusNotFound},
		{errors.Join(services.ErrUnauthorized, errors.New("x")), http.StatusUnauthorized},
		{errors.Join(services.ErrForbidden, errors.New("x")), http.StatusForbidden},
		{errors.Join(services.ErrConflict, errors.New("x")), http.StatusConflict},
		{errors.Join(services.ErrDependencyBlocked, errors.New("x")), http.StatusConflict},
		{errors.Join(services.ErrUpstream, errors.New("x")), http.StatusBadGateway},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		b.fail(c, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.NotContains(t, w.Body.String(), "db exploded")
	}
}

func TestPageQuery_AcceptsBothSizeParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, url := range []string{"/?page=2&page_size=7", "/?page=2&per_page=7"} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, url, nil)
		q := pageQuery(c)
		assert.Equal(t, 2, q.Page)
		assert.Equal(t, 7, q.PerPage)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=-1&per_page=1000", nil)
	q := pageQuery(c)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 100, q.PerPage)
}
