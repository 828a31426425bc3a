// Package main runs the event-operations HTTP server with WebSocket chat and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventops/backend/config"
	"github.com/eventops/backend/internal/attachments"
	"github.com/eventops/backend/internal/auth"
	"github.com/eventops/backend/internal/chat"
	"github.com/eventops/backend/internal/departments"
	"github.com/eventops/backend/internal/events"
	"github.com/eventops/backend/internal/issues"
	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/notifications"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/internal/realtime"
	"github.com/eventops/backend/internal/roles"
	"github.com/eventops/backend/internal/tasks"
	"github.com/eventops/backend/internal/zones"
	"github.com/eventops/backend/pkg/database"
	"github.com/eventops/backend/pkg/queue"
	"github.com/eventops/backend/pkg/redis"
	"github.com/eventops/backend/pkg/response"
	"github.com/eventops/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Blob backend: S3 when a bucket is configured, local disk otherwise.
	var blobs storage.BlobStore
	if cfg.AWS.Bucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Bucket:               cfg.AWS.Bucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		blobs = s3Client
	} else {
		disk, err := storage.NewDisk(cfg.Attach.Root, logger)
		if err != nil {
			logger.Fatal("attachment storage", zap.Error(err))
		}
		blobs = disk
	}

	jwtService := auth.NewJWTService(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTTLMin, cfg.JWT.RefreshTTLHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	presence := realtime.NewInMemoryPresence()
	hub.SetPresenceTracker(presence)

	// RBAC
	rbacRepo := rbac.NewRepository(pool)
	engine := rbac.NewEngine(rbacRepo)
	scopes := rbac.NewResolver(rbacRepo)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Chat
	chatRepo := chat.NewRepository(pool)
	chatService := chat.NewService(chatRepo, engine, logger)
	chatHandler := chat.NewHandler(chatService, logger)

	// Notifications: in-app rows, realtime pushes, background emails.
	jobQueue := queue.NewQueue(rdb.Client, logger)
	notifRepo := notifications.NewRepository(pool)
	dispatcher := notifications.NewDispatcher(notifRepo, hub, presence, jobQueue, logger)
	chatService.SetNotifier(dispatcher)
	notifHandler := notifications.NewHandler(notifRepo, logger)

	// Events and memberships
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, chatService, engine, logger)

	// Departments
	deptRepo := departments.NewRepository(pool)
	deptHandler := departments.NewHandler(deptRepo, eventRepo, chatService, logger)

	// Zones
	zoneRepo := zones.NewRepository(pool)
	zoneHandler := zones.NewHandler(zoneRepo, logger)

	// Tasks
	taskRepo := tasks.NewRepository(pool)
	taskService := tasks.NewService(taskRepo, scopes, logger)
	taskHandler := tasks.NewHandler(taskService, logger)

	// Issues
	issueRepo := issues.NewRepository(pool)
	issueHandler := issues.NewHandler(issueRepo, scopes, logger)

	// Attachments
	attachRepo := attachments.NewRepository(pool)
	attachHandler := attachments.NewHandler(attachRepo, blobs, cfg.Attach.MaxUploadMB,
		time.Duration(cfg.AWS.PresignExpireMinutes)*time.Minute, logger)

	// Roles
	rolesHandler := roles.NewHandler(rbacRepo, chatService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Events
		api.POST("/events", eventHandler.Create)
		api.GET("/events", eventHandler.List)
		api.GET("/events/:eventId", eventHandler.Get)
		api.PATCH("/events/:eventId", eventHandler.Update)
		api.POST("/events/:eventId/archive", eventHandler.Archive)
		api.DELETE("/events/:eventId", eventHandler.Delete)
		api.GET("/events/:eventId/permissions", eventHandler.Permissions)

		// Memberships
		api.GET("/events/:eventId/members", eventHandler.Members)
		api.POST("/events/:eventId/members", eventHandler.AddMember)
		api.DELETE("/events/:eventId/members/:userId", eventHandler.RemoveMember)

		// Departments
		api.GET("/events/:eventId/departments", deptHandler.List)
		api.POST("/events/:eventId/departments",
			middleware.RequirePermission(engine, models.ModuleDepartments, models.ActionCreate), deptHandler.Create)
		api.PATCH("/events/:eventId/departments/:deptId",
			middleware.RequirePermission(engine, models.ModuleDepartments, models.ActionUpdate), deptHandler.Update)
		api.DELETE("/events/:eventId/departments/:deptId",
			middleware.RequirePermission(engine, models.ModuleDepartments, models.ActionDelete), deptHandler.Delete)
		api.POST("/events/:eventId/departments/:deptId/members",
			middleware.RequirePermission(engine, models.ModuleMembers, models.ActionManage), deptHandler.BulkAddMembers)

		// Zones
		api.GET("/events/:eventId/zones", zoneHandler.List)
		api.POST("/events/:eventId/zones",
			middleware.RequirePermission(engine, models.ModuleZones, models.ActionCreate), zoneHandler.Create)
		api.PATCH("/events/:eventId/zones/:zoneId",
			middleware.RequirePermission(engine, models.ModuleZones, models.ActionUpdate), zoneHandler.Update)
		api.DELETE("/events/:eventId/zones/:zoneId",
			middleware.RequirePermission(engine, models.ModuleZones, models.ActionDelete), zoneHandler.Delete)

		// Tasks (scope checks live in the service)
		api.POST("/events/:eventId/tasks", taskHandler.Create)
		api.GET("/events/:eventId/tasks", taskHandler.List)
		api.GET("/tasks/:taskId", taskHandler.Get)
		api.PATCH("/tasks/:taskId", taskHandler.Update)
		api.POST("/tasks/:taskId/status", taskHandler.SetStatus)
		api.DELETE("/tasks/:taskId", taskHandler.Delete)
		api.GET("/tasks/:taskId/dependencies", taskHandler.Dependencies)
		api.POST("/tasks/:taskId/dependencies", taskHandler.AddDependency)
		api.DELETE("/tasks/:taskId/dependencies/:blockerId", taskHandler.RemoveDependency)

		// Issues
		api.POST("/events/:eventId/issues", issueHandler.Create)
		api.GET("/events/:eventId/issues", issueHandler.List)
		api.GET("/issues/:issueId", issueHandler.Get)
		api.PATCH("/issues/:issueId", issueHandler.Update)
		api.DELETE("/issues/:issueId", issueHandler.Delete)

		// Chat
		chatHandler.RegisterEventRoutes(api.Group("/events/:eventId"))
		chatHandler.RegisterRoutes(api.Group("/chat"))

		// Attachments
		attachHandler.RegisterRoutes(api.Group("/events/:eventId"))

		// Notifications
		notifHandler.RegisterRoutes(api.Group(""))

		// Role management
		rolesHandler.RegisterRoutes(api.Group(""))
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, chatService, jwtService, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
