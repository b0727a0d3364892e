package handlers

import (
	"net/http"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

// DiscussionHandler 课程讨论与回复。发表允许匿名，修改和删除只限作者本人
type DiscussionHandler struct {
	base
	comments *services.CommentService
}

func NewDiscussionHandler(comments *services.CommentService, log *logger.Logger) *DiscussionHandler {
	return &DiscussionHandler{base: base{log: log}, comments: comments}
}

type discussionRequest struct {
	CourseID *uint  `json:"course_id"`
	ParentID *uint  `json:"parent_id"`
	Content  string `json:"content" binding:"required"`
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *DiscussionHandler) List(c *gin.Context) {
	courseID, ok := optionalUint(c, "course_id")
	if !ok {
		return
	}
	page, err := h.comments.ListTopLevel(c.Request.Context(), courseID, pageQuery(c), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create 发表讨论；带 parent_id 时作为回复
func (h *DiscussionHandler) Create(c *gin.Context) {
	var req discussionRequest
	if !h.bind(c, &req) {
		return
	}
	var (
		view *services.CommentView
		err  error
	)
	switch {
	case req.ParentID != nil:
		view, err = h.comments.CreateReply(c.Request.Context(), *req.ParentID, req.CourseID, currentUser(c), req.Content)
	case req.CourseID != nil:
		view, err = h.comments.CreateTopLevel(c.Request.Context(), *req.CourseID, currentUser(c), req.Content)
	default:
		writeError(c, http.StatusBadRequest, "invalid_input", "缺少 course_id")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *DiscussionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.comments.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DiscussionHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	// 先校验作者，非作者无论请求体如何都返回 403
	if err := h.comments.Authorize(c.Request.Context(), id, currentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	var req contentRequest
	if !h.bind(c, &req) {
		return
	}
	view, err := h.comments.Update(c.Request.Context(), id, currentUser(c), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete 删除讨论及其全部回复
func (h *DiscussionHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	removed, err := h.comments.Delete(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}

func (h *DiscussionHandler) Replies(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	replies, err := h.comments.ListReplies(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": replies, "total": len(replies)})
}

func (h *DiscussionHandler) CreateReply(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req discussionRequest
	if !h.bind(c, &req) {
		return
	}
	view, err := h.comments.CreateReply(c.Request.Context(), id, req.CourseID, currentUser(c), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}
