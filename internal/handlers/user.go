package handlers

import (
	"net/http"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户主页上的内容列表
type UserHandler struct {
	base
	evaluations *services.EvaluationService
	comments    *services.CommentService
}

func NewUserHandler(evaluations *services.EvaluationService, comments *services.CommentService, log *logger.Logger) *UserHandler {
	return &UserHandler{base: base{log: log}, evaluations: evaluations, comments: comments}
}

func (h *UserHandler) Evaluations(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	page, err := h.evaluations.ListByUser(c.Request.Context(), id, pageQuery(c), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) Discussions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	page, err := h.comments.ListByUser(c.Request.Context(), id, pageQuery(c), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
