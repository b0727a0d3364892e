package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coursehub/internal/config"
	"coursehub/internal/db"
	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(database))

	cfg := &config.Config{SecretKey: "test-secret", TokenTTL: time.Hour, AuthDevMode: true}
	svc, err := services.NewContainer(database, cfg, services.DevExchanger{}, logger.Nop())
	require.NoError(t, err)
	return &apiClient{t: t, engine: New(svc, []string{"http://localhost:3000"}, logger.Nop())}
}

func (a *apiClient) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *apiClient) login(code string) (string, uint) {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/auth/wechat-login", "", map[string]string{"code": code})
	require.Equal(a.t, http.StatusOK, status, body)
	user := body["user"].(map[string]interface{})
	return body["token"].(string), uint(user["id"].(float64))
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	status, body := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestEvaluationFlow(t *testing.T) {
	api := newTestAPI(t)
	alice, _ := api.login("alice-code")
	bob, _ := api.login("bob-code")

	status, body := api.do(http.MethodPost, "/api/courses", alice, map[string]interface{}{"course_code": "CS101", "name": "程序设计"})
	require.Equal(t, http.StatusCreated, status, body)
	courseID := body["id"].(float64)

	status, body = api.do(http.MethodPost, "/api/evaluations", "", map[string]interface{}{"course_id": courseID, "score": 5})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errorCode(body))

	status, body = api.do(http.MethodPost, "/api/evaluations", alice, map[string]interface{}{"course_id": courseID, "score": 9})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", errorCode(body))

	status, body = api.do(http.MethodPost, "/api/evaluations", alice, map[string]interface{}{
		"course_id": courseID, "score": 5, "tags": "有趣,干货",
	})
	require.Equal(t, http.StatusCreated, status, body)
	evalID := uint(body["id"].(float64))

	status, body = api.do(http.MethodPost, "/api/evaluations", alice, map[string]interface{}{"course_id": courseID, "score": 4})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", errorCode(body))

	status, _ = api.do(http.MethodPut, fmt.Sprintf("/api/evaluations/%d", evalID), bob, map[string]interface{}{"score": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/evaluations/%d/like", evalID), bob, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["like_count"])

	status, body = api.do(http.MethodGet, fmt.Sprintf("/api/evaluations?course_id=%d&per_page=5", int(courseID)), bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(5), body["per_page"])
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].(map[string]interface{})["is_liked"])

	status, body = api.do(http.MethodGet, fmt.Sprintf("/api/courses/%d", int(courseID)), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), body["avg_score"])

	status, body = api.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/rating_distribution", int(courseID)), "", nil)
	require.Equal(t, http.StatusOK, status)
	dist := body["distribution"].(map[string]interface{})
	assert.Equal(t, float64(1), dist["5"])
	assert.Equal(t, float64(0), dist["1"])

	status, body = api.do(http.MethodGet, "/api/rankings/courses?limit=3", "", nil)
	require.Equal(t, http.StatusOK, status)
	ranked := body["items"].([]interface{})
	require.Len(t, ranked, 1)
	assert.Equal(t, float64(1), ranked[0].(map[string]interface{})["rank"])

	status, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/courses/%d", int(courseID)), alice, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/evaluations/%d", evalID), alice, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestDiscussionFlow(t *testing.T) {
	api := newTestAPI(t)
	alice, aliceID := api.login("alice-code")
	bob, _ := api.login("bob-code")

	_, body := api.do(http.MethodPost, "/api/courses", alice, map[string]interface{}{"course_code": "CS101", "name": "程序设计"})
	courseID := body["id"].(float64)

	status, body := api.do(http.MethodPost, "/api/discussions", "", map[string]interface{}{"course_id": courseID, "content": "匿名提问"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "匿名用户", body["user_name"])

	status, body = api.do(http.MethodPost, "/api/discussions", alice, map[string]interface{}{"course_id": courseID, "content": "我的讨论"})
	require.Equal(t, http.StatusCreated, status)
	discussionID := int(body["id"].(float64))
	assert.Equal(t, float64(aliceID), body["user_id"])

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/discussions/%d/replies", discussionID), bob, map[string]interface{}{"content": "回复"})
	require.Equal(t, http.StatusCreated, status, body)
	replyID := int(body["id"].(float64))

	status, _ = api.do(http.MethodPost, fmt.Sprintf("/api/replies/%d/like", replyID), alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPost, fmt.Sprintf("/api/discussions/%d/like", discussionID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = api.do(http.MethodGet, fmt.Sprintf("/api/discussions?course_id=%d", int(courseID)), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])

	status, _ = api.do(http.MethodPut, fmt.Sprintf("/api/discussions/%d", discussionID), bob, map[string]interface{}{"content": "篡改"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(http.MethodDelete, fmt.Sprintf("/api/discussions/%d", discussionID), alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["deleted"])

	status, body = api.do(http.MethodGet, fmt.Sprintf("/api/discussions/%d", discussionID), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(body))
}

func TestMeAndInvalidToken(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login("alice-code")

	status, _ := api.do(http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := api.do(http.MethodPut, "/api/me/nickname", token, map[string]string{"nickname": "小明"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "小明", body["nickname"])

	status, body = api.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "小明", body["nickname"])

	status, _ = api.do(http.MethodGet, "/api/courses/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUpdate_NonOwnerForbiddenRegardlessOfBody(t *testing.T) {
	api := newTestAPI(t)
	alice, _ := api.login("alice-code")
	bob, _ := api.login("bob-code")

	_, body := api.do(http.MethodPost, "/api/courses", alice, map[string]interface{}{"course_code": "CS101", "name": "程序设计"})
	courseID := body["id"].(float64)
	_, body = api.do(http.MethodPost, "/api/evaluations", alice, map[string]interface{}{"course_id": courseID, "score": 4})
	evalID := int(body["id"].(float64))
	_, body = api.do(http.MethodPost, "/api/discussions", alice, map[string]interface{}{"course_id": courseID, "content": "原文"})
	discussionID := int(body["id"].(float64))

	cases := []struct {
		path string
		body interface{}
	}{
		{fmt.Sprintf("/api/discussions/%d", discussionID), map[string]interface{}{}},
		{fmt.Sprintf("/api/discussions/%d", discussionID), map[string]interface{}{"content": ""}},
		{fmt.Sprintf("/api/evaluations/%d", evalID), map[string]interface{}{"score": 9}},
		{fmt.Sprintf("/api/evaluations/%d", evalID), map[string]interface{}{}},
	}
	for _, tc := range cases {
		status, body := api.do(http.MethodPut, tc.path, bob, tc.body)
		assert.Equal(t, http.StatusForbidden, status, tc.path)
		assert.Equal(t, "forbidden", errorCode(body), tc.path)
	}

	// 作者本人提交非法内容仍按校验失败处理
	status, body := api.do(http.MethodPut, fmt.Sprintf("/api/evaluations/%d", evalID), alice, map[string]interface{}{"score": 9})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", errorCode(body))
}

func TestListCourses_HugePage(t *testing.T) {
	api := newTestAPI(t)
	alice, _ := api.login("alice-code")
	api.do(http.MethodPost, "/api/courses", alice, map[string]interface{}{"course_code": "CS101", "name": "程序设计"})

	status, body := api.do(http.MethodGet, "/api/courses?page=461168601842738792&page_size=20", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])
	assert.Empty(t, body["items"])
}
