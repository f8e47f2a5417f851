package app

import (
	"video_course_backend/docs"
	"video_course_backend/internal/config"
	"video_course_backend/internal/middleware"
	"video_course_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(c.auth.AuthService))
	{
		a.registerLearnerRoutes(authGroup, c)

		// 3. 管理员路由
		admin := authGroup.Group("/admin")
		admin.Use(middleware.AdminMiddleware())
		a.registerAdminRoutes(admin, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	router.GET("/api/health", c.health.HealthCheck)
	router.POST("/api/register", c.auth.Register)
	router.POST("/api/login", c.auth.Login)
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)
	group.PUT("/profile", c.auth.UpdateProfile)
	group.POST("/logout", c.auth.Logout)

	videos := group.Group("/videos")
	{
		videos.GET("", c.video.ListVideos)
		videos.GET("/:id", c.video.GetVideo)
		videos.GET("/:id/progress", c.progress.VideoProgress)
		videos.POST("/:id/complete", c.progress.MarkComplete)
	}

	courses := group.Group("/courses")
	{
		courses.GET("", c.course.ListCourses)
		courses.GET("/:id", c.course.GetCourse)
		courses.GET("/:id/player", c.progress.Player)
		courses.GET("/:id/navigate", c.progress.Navigate)
		courses.GET("/:id/progress", c.progress.CourseProgress)
	}

	playback := group.Group("/playback")
	{
		playback.POST("/events", c.progress.ReportPlayback)
		playback.GET("/ws", c.progress.HandleWS)
	}
}

func (a *App) registerAdminRoutes(admin *gin.RouterGroup, c *controllers) {
	admin.POST("/videos", c.video.AddVideo)

	admin.GET("/picker", c.course.Picker)
	admin.POST("/courses", c.course.CreateCourse)
	admin.PUT("/courses/:id", c.course.UpdateCourse)
	admin.DELETE("/courses/:id", c.course.DeleteCourse)
	admin.POST("/courses/:id/move", c.course.MoveLesson)
	admin.GET("/courses/:id/picker", c.course.Picker)

	admin.POST("/uploads/thumbnail", c.course.UploadThumbnail)
	admin.POST("/rollups/reconcile", c.progress.Reconcile)
}
