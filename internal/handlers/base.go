package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"coursehub/internal/logger"
	"coursehub/internal/middleware"
	"coursehub/internal/models"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// base 各 handler 共用的响应工具
type base struct {
	log *logger.Logger
}

// RegisterValidation 让校验错误使用 json 字段名
func RegisterValidation() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// fail 把错误类别映射为状态码；未知错误记录日志并隐藏细节
func (b base) fail(c *gin.Context, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrDependencyBlocked):
		status, code = http.StatusConflict, "dependency_blocked"
	case errors.Is(err, services.ErrUpstream):
		b.log.Warn("upstream failure", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusBadGateway, "upstream_error", "登录服务暂不可用")
		return
	default:
		b.log.Error("internal error", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "internal_error", "服务器内部错误")
		return
	}
	writeError(c, status, code, services.Message(err))
}

// bind 解析 JSON 请求体，失败时直接返回 400
func (b base) bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", bindMessage(err))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Param() != "" {
				parts = append(parts, fmt.Sprintf("%s 不满足 %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				parts = append(parts, fmt.Sprintf("%s 不满足 %s", fe.Field(), fe.Tag()))
			}
		}
		return strings.Join(parts, "; ")
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return "请求体不是合法的 JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("字段 %s 类型错误", typeErr.Field)
	}
	return err.Error()
}

// paramID 解析路径中的数字 ID
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		writeError(c, http.StatusBadRequest, "invalid_input", "无效的 ID")
		return 0, false
	}
	return uint(id), true
}

// optionalUint 可选的数字查询参数；格式错误时返回 false
func optionalUint(c *gin.Context, key string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		writeError(c, http.StatusBadRequest, "invalid_input", fmt.Sprintf("无效的 %s", key))
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// pageQuery 读取分页参数，page_size 与 per_page 等价
func pageQuery(c *gin.Context) services.PageQuery {
	size := c.Query("page_size")
	if size == "" {
		size = c.Query("per_page")
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(size)
	return services.PageQuery{Page: page, PerPage: perPage}.Normalize()
}

func limitQuery(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
