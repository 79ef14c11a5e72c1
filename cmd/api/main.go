package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"taskhub/configs"
	"taskhub/internal/api/v1"
	"taskhub/internal/api/v1/handlers"
	"taskhub/internal/cache"
	"taskhub/internal/middleware"
	"taskhub/internal/repository"
	ws "taskhub/internal/websocket"
	"taskhub/pkg/database"
	"taskhub/pkg/logger"
	"taskhub/pkg/storage"
)

func main() {
	logger.InitLoggers()
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	cfg := configs.LoadConfig()
	ctx := context.Background()

	db, err := database.ConnectDB(cfg)
	if err != nil {
		logger.ErrorLogger.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	logger.SystemLogger.Info("Database Connected")

	if err := repository.CreateTablesIfNotExist(db); err != nil {
		logger.ErrorLogger.Fatal("Schema setup failed", zap.Error(err))
	}

	if cfg.AdminPassword != "" {
		if err := repository.SeedAdminUser(db, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.ErrorLogger.Fatal("Admin seed failed", zap.Error(err))
		}
		logger.AuditLogger.Info("Admin account seeded", zap.String("username", cfg.AdminUsername))
	}

	redisClient, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.ErrorLogger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	entityCache := cache.New(redisClient, cfg.CacheKey)
	store := storage.New(cfg.UploadDir)
	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	tokenTTL := time.Duration(cfg.TokenTTL) * time.Hour

	app := fiber.New()
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	v1.RegisterRoutes(app, v1.Deps{
		Auth:        handlers.NewAuthHandler(users, validate, cfg.JWTSecret, tokenTTL),
		Users:       handlers.NewUserHandler(users, tasks, entityCache, store, validate),
		Profile:     handlers.NewProfileHandler(users, entityCache, store, validate),
		Tasks:       handlers.NewTaskHandler(tasks, entityCache, store, hub, validate),
		RequireAuth: middleware.RequireAuth(cfg.JWTSecret, users),
		Hub:         hub,
	})

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
