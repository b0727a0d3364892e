package handlers

import (
	"net/http"

	"coursehub/internal/logger"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

type RankingHandler struct {
	base
	rankings *services.RankingService
}

func NewRankingHandler(rankings *services.RankingService, log *logger.Logger) *RankingHandler {
	return &RankingHandler{base: base{log: log}, rankings: rankings}
}

func rankingQuery(c *gin.Context) services.RankingQuery {
	window := c.Query("time_range")
	if window == "" {
		window = c.Query("window")
	}
	return services.RankingQuery{
		Semester:   c.Query("semester"),
		Department: c.Query("department"),
		Window:     window,
		Limit:      limitQuery(c),
	}
}

func (h *RankingHandler) Courses(c *gin.Context) {
	items, err := h.rankings.Courses(c.Request.Context(), rankingQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *RankingHandler) Teachers(c *gin.Context) {
	items, err := h.rankings.Teachers(c.Request.Context(), rankingQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *RankingHandler) Tags(c *gin.Context) {
	items, err := h.rankings.Tags(c.Request.Context(), rankingQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *RankingHandler) Departments(c *gin.Context) {
	items, err := h.rankings.Departments(c.Request.Context(), rankingQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
