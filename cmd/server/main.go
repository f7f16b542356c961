package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go-gin-event-registration/config"
	"go-gin-event-registration/internal/auth"
	"go-gin-event-registration/internal/cache"
	"go-gin-event-registration/internal/database"
	"go-gin-event-registration/internal/handler"
	"go-gin-event-registration/internal/notify"
	"go-gin-event-registration/internal/queue"
	"go-gin-event-registration/internal/repository"
	"go-gin-event-registration/internal/server"
	"go-gin-event-registration/internal/service"
	"go-gin-event-registration/internal/worker"
	"go-gin-event-registration/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.LogLevel)
	defer logger.Sync()
	log := logger.WithComponent("main")

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	// repositories
	eventRepo := repository.NewEventRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// redis
	inventory := cache.NewSeatInventory(rdb)
	blacklist := cache.NewTokenBlacklist(rdb)

	notifications, err := queue.NewRedisStreamNotificationQueue(ctx, rdb, cfg.Queue.ConsumerID, queue.StreamConfigFrom(cfg.Queue))
	if err != nil {
		log.Fatal("Failed to initialize notification queue", zap.Error(err))
	}

	// mail
	mailer, err := notify.NewMailer(cfg.Mail)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	composer, err := notify.NewComposer()
	if err != nil {
		log.Fatal("Failed to load mail templates", zap.Error(err))
	}

	mailWorker := worker.NewNotificationWorker(notifications, composer, mailer)
	if err := mailWorker.Start(ctx); err != nil {
		log.Fatal("Failed to start notification worker", zap.Error(err))
	}

	// services
	authService := auth.NewAuthService(userRepo, blacklist,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost))
	eventService := service.NewEventService(pool, eventRepo, registrationRepo, inventory, notifications)
	registrationService := service.NewRegistrationService(pool, eventRepo, registrationRepo, inventory, notifications)

	router := server.NewRouter(cfg.Server, server.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Events:        handler.NewEventHandler(eventService),
		Registrations: handler.NewRegistrationHandler(registrationService),
		Middleware:    handler.NewAuthMiddleware(authService),
	})

	if err := server.New(cfg.Server, router).Run(ctx); err != nil {
		log.Error("HTTP server stopped", zap.Error(err))
	}

	// 等待 worker 處理完手上的通知
	stop()
	select {
	case <-mailWorker.Done():
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("Notification worker did not stop in time")
	}
	log.Info("Server exiting")
}
