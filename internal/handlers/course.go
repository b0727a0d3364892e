package handlers

import (
	"net/http"
	"strings"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

type CourseHandler struct {
	base
	catalog     *services.CatalogService
	aggregation *services.AggregationService
}

func NewCourseHandler(catalog *services.CatalogService, aggregation *services.AggregationService, log *logger.Logger) *CourseHandler {
	return &CourseHandler{base: base{log: log}, catalog: catalog, aggregation: aggregation}
}

// List 课程列表；department 与 departments（逗号分隔）都可用于院系筛选
func (h *CourseHandler) List(c *gin.Context) {
	teacherID, ok := optionalUint(c, "teacher_id")
	if !ok {
		return
	}
	var departments []string
	for _, raw := range []string{c.Query("department"), c.Query("departments")} {
		for _, d := range strings.Split(raw, ",") {
			if d = strings.TrimSpace(d); d != "" {
				departments = append(departments, d)
			}
		}
	}
	page, err := h.catalog.ListCourses(c.Request.Context(), services.CourseFilter{
		Semester:    c.Query("semester"),
		Departments: departments,
		TeacherID:   teacherID,
		Keyword:     c.Query("keyword"),
		SortBy:      c.Query("sort_by"),
		PageQuery:   pageQuery(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	course, err := h.catalog.GetCourse(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) Create(c *gin.Context) {
	var in services.CourseInput
	if !h.bind(c, &in) {
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *CourseHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.CourseInput
	if !h.bind(c, &in) {
		return
	}
	course, err := h.catalog.UpdateCourse(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCourse(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PopularTags 课程热门标签
func (h *CourseHandler) PopularTags(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tags, err := h.aggregation.PopularTags(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_id": id, "tags": tags})
}

// RatingDistribution 课程评分分布
func (h *CourseHandler) RatingDistribution(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	dist, err := h.aggregation.RatingDistribution(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_id": id, "distribution": dist})
}
