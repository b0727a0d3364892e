package middleware

import (
	"context"
	"net/http"
	"strings"

	"coursehub/internal/logger"
	"coursehub/internal/models"

	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// TokenResolver 由令牌解析当前用户，无效令牌返回 nil, nil
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// LoadUser 解析 Bearer 令牌，成功时把用户放进 context；无令牌或令牌无效按匿名处理
func LoadUser(resolver TokenResolver, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		user, err := resolver.ResolveToken(c.Request.Context(), token)
		if err != nil {
			log.Error("resolve token failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "internal_error", "message": "服务器内部错误"},
			})
			return
		}
		if user != nil {
			c.Set(CheckUserKey, user)
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "unauthorized", "message": "请先登录"},
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
