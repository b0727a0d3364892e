package router

import (
	"net/http"

	"coursehub/internal/handlers"
	"coursehub/internal/logger"
	"coursehub/internal/middleware"
	"coursehub/internal/models"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

// New 创建 gin 引擎并挂载中间件与路由
func New(svc *services.Container, corsOrigins []string, log *logger.Logger) *gin.Engine {
	handlers.RegisterValidation()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(corsOrigins))
	r.Use(middleware.LoadUser(svc.Identity, log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterRoutes(r.Group("/api"), svc, log)
	return r
}

func RegisterRoutes(api *gin.RouterGroup, svc *services.Container, log *logger.Logger) {
	// Handlers
	authHandler := handlers.NewAuthHandler(svc.Identity, log)
	userHandler := handlers.NewUserHandler(svc.Evaluations, svc.Comments, log)
	teacherHandler := handlers.NewTeacherHandler(svc.Catalog, log)
	courseHandler := handlers.NewCourseHandler(svc.Catalog, svc.Aggregation, log)
	evaluationHandler := handlers.NewEvaluationHandler(svc.Evaluations, log)
	discussionHandler := handlers.NewDiscussionHandler(svc.Comments, log)
	likeHandler := handlers.NewLikeHandler(svc.Likes, log)
	rankingHandler := handlers.NewRankingHandler(svc.Rankings, log)

	// 公共路由 (Public Routes)
	api.POST("/auth/wechat-login", authHandler.WechatLogin) // 小程序登录

	api.GET("/users/:id/evaluations", userHandler.Evaluations) // 用户的评价
	api.GET("/users/:id/discussions", userHandler.Discussions) // 用户的讨论

	api.GET("/teachers", teacherHandler.List)
	api.GET("/teachers/:id", teacherHandler.Get)
	api.GET("/teachers/:id/courses", teacherHandler.Courses)

	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)
	api.GET("/courses/:id/popular_tags", courseHandler.PopularTags)
	api.GET("/courses/:id/rating_distribution", courseHandler.RatingDistribution)

	api.GET("/evaluations", evaluationHandler.List)
	api.GET("/evaluations/:id", evaluationHandler.Get)

	// 讨论允许匿名发表
	api.GET("/discussions", discussionHandler.List)
	api.POST("/discussions", discussionHandler.Create)
	api.GET("/discussions/:id", discussionHandler.Get)
	api.GET("/discussions/:id/replies", discussionHandler.Replies)
	api.POST("/discussions/:id/replies", discussionHandler.CreateReply)

	api.GET("/rankings/courses", rankingHandler.Courses)
	api.GET("/rankings/teachers", rankingHandler.Teachers)
	api.GET("/rankings/tags", rankingHandler.Tags)
	api.GET("/rankings/departments", rankingHandler.Departments)

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", authHandler.Me)
		authorized.PUT("/me/nickname", authHandler.UpdateNickname)

		authorized.POST("/teachers", teacherHandler.Create)
		authorized.PUT("/teachers/:id", teacherHandler.Update)
		authorized.DELETE("/teachers/:id", teacherHandler.Delete)

		authorized.POST("/courses", courseHandler.Create)
		authorized.PUT("/courses/:id", courseHandler.Update)
		authorized.DELETE("/courses/:id", courseHandler.Delete)

		authorized.POST("/evaluations", evaluationHandler.Create)
		authorized.PUT("/evaluations/:id", evaluationHandler.Update)
		authorized.DELETE("/evaluations/:id", evaluationHandler.Delete)
		authorized.POST("/evaluations/:id/like", likeHandler.Toggle(models.LikeTargetEvaluation)) // 点赞/取消

		authorized.PUT("/discussions/:id", discussionHandler.Update)
		authorized.DELETE("/discussions/:id", discussionHandler.Delete) // 连同回复一起删除
		authorized.POST("/discussions/:id/like", likeHandler.Toggle(models.LikeTargetComment))
		authorized.POST("/replies/:id/like", likeHandler.Toggle(models.LikeTargetComment))
	}
}
