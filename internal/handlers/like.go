package handlers

import (
	"net/http"

	"coursehub/internal/logger"
	"coursehub/internal/models"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	base
	likes *services.LikeService
}

func NewLikeHandler(likes *services.LikeService, log *logger.Logger) *LikeHandler {
	return &LikeHandler{base: base{log: log}, likes: likes}
}

// Toggle 返回切换点赞的 handler，target 决定点赞对象类型
func (h *LikeHandler) Toggle(target models.LikeTarget) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		result, err := h.likes.Toggle(c.Request.Context(), currentUser(c), target, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"liked": result.Liked, "like_count": result.Count})
	}
}
