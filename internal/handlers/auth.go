package handlers

import (
	"net/http"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	base
	identity *services.IdentityService
}

func NewAuthHandler(identity *services.IdentityService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{base: base{log: log}, identity: identity}
}

type loginRequest struct {
	Code string `json:"code" binding:"required"`
}

// WechatLogin 小程序登录：code 换取身份并签发令牌
func (h *AuthHandler) WechatLogin(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	user, token, err := h.identity.Login(c.Request.Context(), req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me 当前用户资料
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.identity.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type nicknameRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}

// UpdateNickname 修改昵称
func (h *AuthHandler) UpdateNickname(c *gin.Context) {
	var req nicknameRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.identity.UpdateNickname(c.Request.Context(), currentUser(c), req.Nickname)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
