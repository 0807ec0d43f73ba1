package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/studiora/studiora-backend/internal/db"
	"github.com/studiora/studiora-backend/internal/handlers"
	"github.com/studiora/studiora-backend/internal/logger"
	"github.com/studiora/studiora-backend/internal/middleware"
	"github.com/studiora/studiora-backend/internal/repos"
	"github.com/studiora/studiora-backend/internal/server"
	"github.com/studiora/studiora-backend/internal/services"
	"github.com/studiora/studiora-backend/internal/sse"
	"github.com/studiora/studiora-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	sideChannelBuffer := utils.GetEnvAsInt("SIDE_CHANNEL_BUFFER", 64, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional; analytics fall back to direct computation without it)
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	} else {
		log.Warn("REDIS_ADDR not set, analytics cache disabled")
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	chapterRepo := repos.NewChapterRepo(thePG, log)
	lessonRepo := repos.NewLessonRepo(thePG, log)
	enrollmentRepo := repos.NewEnrollmentRepo(thePG, log)
	videoProgressRepo := repos.NewVideoProgressRepo(thePG, log)
	lessonProgressRepo := repos.NewLessonProgressRepo(thePG, log)
	conversationRepo := repos.NewConversationRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Side channel worker
	sideChannel := services.NewSideChannel(log, sideChannelBuffer)
	sideChannel.Start(context.Background())

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService", "error", err)
	}
	paymentClient, err := services.NewStripePaymentClient(log)
	if err != nil {
		log.Error("Could not init payment client", "error", err)
		os.Exit(1)
	}
	identityService := services.NewIdentityService(thePG, log, userRepo, jwtSecretKey)
	userService := services.NewUserService(thePG, log, userRepo)
	courseService := services.NewCourseService(thePG, log, courseRepo, chapterRepo, lessonRepo, enrollmentRepo)
	chapterService := services.NewChapterService(thePG, log, courseRepo, chapterRepo, lessonRepo)
	lessonService := services.NewLessonService(thePG, log, courseRepo, chapterRepo, lessonRepo, enrollmentRepo)
	enrollmentService := services.NewEnrollmentService(thePG, log, userRepo, courseRepo, enrollmentRepo, paymentClient)
	reconcileService := services.NewReconcileService(thePG, log, courseRepo, enrollmentRepo, conversationRepo, messageRepo, sideChannel, sseHub)
	progressService := services.NewProgressService(thePG, log, chapterRepo, lessonRepo, enrollmentRepo, videoProgressRepo, lessonProgressRepo)
	messagingService := services.NewMessagingService(thePG, log, conversationRepo, messageRepo, sseHub)
	analyticsService := services.NewAnalyticsService(thePG, log, courseRepo, enrollmentRepo, chapterRepo, lessonRepo, lessonProgressRepo, redisClient)
	uploadService := services.NewUploadService(log, userRepo, bucketService)

	// Handlers
	log.Info("Setting up handlers from main...")
	userHandler := handlers.NewUserHandler(log, identityService, userService)
	courseHandler := handlers.NewCourseHandler(log, courseService)
	chapterHandler := handlers.NewChapterHandler(log, chapterService)
	lessonHandler := handlers.NewLessonHandler(log, lessonService)
	enrollmentHandler := handlers.NewEnrollmentHandler(log, enrollmentService)
	progressHandler := handlers.NewProgressHandler(log, progressService)
	messagingHandler := handlers.NewMessagingHandler(log, messagingService)
	analyticsHandler := handlers.NewAnalyticsHandler(log, analyticsService)
	uploadHandler := handlers.NewUploadHandler(log, uploadService)
	webhookHandler := handlers.NewWebhookHandler(log, paymentClient, reconcileService, identityService)
	realtimeHandler := handlers.NewRealtimeHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, identityService)

	// Router
	log.Info("Setting up router from main...")
	var allowOrigins []string
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		allowOrigins = strings.Split(raw, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		UserHandler:       userHandler,
		CourseHandler:     courseHandler,
		ChapterHandler:    chapterHandler,
		LessonHandler:     lessonHandler,
		EnrollmentHandler: enrollmentHandler,
		ProgressHandler:   progressHandler,
		MessagingHandler:  messagingHandler,
		AnalyticsHandler:  analyticsHandler,
		UploadHandler:     uploadHandler,
		WebhookHandler:    webhookHandler,
		RealtimeHandler:   realtimeHandler,
		AllowOrigins:      allowOrigins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
