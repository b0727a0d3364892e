package handlers

import (
	"net/http"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

type TeacherHandler struct {
	base
	catalog *services.CatalogService
}

func NewTeacherHandler(catalog *services.CatalogService, log *logger.Logger) *TeacherHandler {
	return &TeacherHandler{base: base{log: log}, catalog: catalog}
}

func (h *TeacherHandler) List(c *gin.Context) {
	page, err := h.catalog.ListTeachers(c.Request.Context(), services.TeacherFilter{
		Department: c.Query("department"),
		Keyword:    c.Query("keyword"),
		PageQuery:  pageQuery(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *TeacherHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	teacher, err := h.catalog.GetTeacher(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, teacher)
}

func (h *TeacherHandler) Create(c *gin.Context) {
	var in services.TeacherInput
	if !h.bind(c, &in) {
		return
	}
	teacher, err := h.catalog.CreateTeacher(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, teacher)
}

func (h *TeacherHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.TeacherInput
	if !h.bind(c, &in) {
		return
	}
	teacher, err := h.catalog.UpdateTeacher(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, teacher)
}

func (h *TeacherHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteTeacher(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Courses 教师名下课程
func (h *TeacherHandler) Courses(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	courses, err := h.catalog.TeacherCourses(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": courses, "total": len(courses)})
}
