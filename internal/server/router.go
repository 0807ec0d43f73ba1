package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/studiora/studiora-backend/internal/handlers"
	"github.com/studiora/studiora-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	UserHandler       *handlers.UserHandler
	CourseHandler     *handlers.CourseHandler
	ChapterHandler    *handlers.ChapterHandler
	LessonHandler     *handlers.LessonHandler
	EnrollmentHandler *handlers.EnrollmentHandler
	ProgressHandler   *handlers.ProgressHandler
	MessagingHandler  *handlers.MessagingHandler
	AnalyticsHandler  *handlers.AnalyticsHandler
	UploadHandler     *handlers.UploadHandler
	WebhookHandler    *handlers.WebhookHandler
	RealtimeHandler   *handlers.RealtimeHandler
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/webhooks/stripe", cfg.WebhookHandler.HandleStripe)
	router.POST("/webhooks/identity", cfg.WebhookHandler.HandleIdentity)

	public := router.Group("/api")
	public.Use(cfg.AuthMiddleware.OptionalAuth())
	{
		public.GET("/courses", cfg.CourseHandler.ListPublished)
		// Slug lookups live under /catalog so course ids and slugs never
		// compete for the same route segment.
		public.GET("/catalog/:slug", cfg.CourseHandler.GetBySlug)
		// Free lessons are open to everyone; the service gates paid ones.
		public.GET("/lessons/:id", cfg.LessonHandler.Get)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// User
	protected.GET("/me", cfg.UserHandler.GetMe)
	protected.PUT("/admin/users/:id/role", cfg.UserHandler.ChangeRole)
	protected.PUT("/admin/users/:id/ban", cfg.UserHandler.SetBanned)
	// Courses
	protected.GET("/my/courses", cfg.CourseHandler.ListOwn)
	protected.POST("/courses", cfg.CourseHandler.Create)
	protected.PUT("/courses/:id", cfg.CourseHandler.Update)
	protected.POST("/courses/:id/publish", cfg.CourseHandler.Publish)
	protected.POST("/courses/:id/archive", cfg.CourseHandler.Archive)
	protected.DELETE("/courses/:id", cfg.CourseHandler.Delete)
	// Chapters
	protected.GET("/courses/:id/chapters", cfg.ChapterHandler.ListByCourse)
	protected.POST("/courses/:id/chapters", cfg.ChapterHandler.Create)
	protected.PUT("/courses/:id/chapters/reorder", cfg.ChapterHandler.Reorder)
	protected.PUT("/chapters/:id", cfg.ChapterHandler.Rename)
	protected.DELETE("/chapters/:id", cfg.ChapterHandler.Delete)
	// Lessons
	protected.GET("/chapters/:id/lessons", cfg.LessonHandler.ListByChapter)
	protected.POST("/chapters/:id/lessons", cfg.LessonHandler.Create)
	protected.PUT("/lessons/:id", cfg.LessonHandler.Update)
	protected.DELETE("/lessons/:id", cfg.LessonHandler.Delete)
	// Enrollment + checkout
	protected.POST("/courses/:id/checkout", cfg.EnrollmentHandler.Checkout)
	protected.GET("/enrollments", cfg.EnrollmentHandler.ListMine)
	// Progress
	protected.POST("/lessons/:id/video-progress", cfg.ProgressHandler.RecordVideoProgress)
	protected.POST("/lessons/:id/toggle-completion", cfg.ProgressHandler.ToggleLessonCompletion)
	protected.GET("/courses/:id/progress", cfg.ProgressHandler.GetCourseProgress)
	// Messaging
	protected.POST("/messages", cfg.MessagingHandler.SendMessage)
	protected.GET("/conversations", cfg.MessagingHandler.ListConversations)
	protected.GET("/conversations/:id/messages", cfg.MessagingHandler.ListMessages)
	// Analytics
	protected.GET("/analytics/overview", cfg.AnalyticsHandler.GetOverview)
	// Uploads
	protected.POST("/uploads/avatar", cfg.UploadHandler.UploadAvatar)
	protected.POST("/uploads/media", cfg.UploadHandler.UploadMedia)

	// SSE
	sseGroup := router.Group("/sse")
	sseGroup.Use(cfg.AuthMiddleware.RequireAuth())
	sseGroup.GET("/stream", cfg.RealtimeHandler.SSEStream)

	return router
}
