package handlers

import (
	"net/http"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

type EvaluationHandler struct {
	base
	evaluations *services.EvaluationService
}

func NewEvaluationHandler(evaluations *services.EvaluationService, log *logger.Logger) *EvaluationHandler {
	return &EvaluationHandler{base: base{log: log}, evaluations: evaluations}
}

// List 评价列表，sort_by 可选 created_at、score、likes
func (h *EvaluationHandler) List(c *gin.Context) {
	courseID, ok := optionalUint(c, "course_id")
	if !ok {
		return
	}
	page, err := h.evaluations.List(c.Request.Context(), services.EvaluationFilter{
		CourseID:  courseID,
		SortBy:    c.Query("sort_by"),
		PageQuery: pageQuery(c),
	}, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *EvaluationHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.evaluations.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *EvaluationHandler) Create(c *gin.Context) {
	var in services.EvaluationInput
	if !h.bind(c, &in) {
		return
	}
	view, err := h.evaluations.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *EvaluationHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.evaluations.Authorize(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	var in services.EvaluationInput
	if !h.bind(c, &in) {
		return
	}
	view, err := h.evaluations.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *EvaluationHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.evaluations.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
