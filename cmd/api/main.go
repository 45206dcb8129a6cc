package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/resepia/backend/config"
	"github.com/resepia/backend/internal/api"
	"github.com/resepia/backend/internal/database"
	"github.com/resepia/backend/internal/logger"
	"github.com/resepia/backend/internal/metrics"
	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/realtime"
	"github.com/resepia/backend/internal/router"
	"github.com/resepia/backend/internal/server"
	"github.com/resepia/backend/internal/service"
)

func main() {
	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.Environment.IsLocal(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if cfg.Environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server error", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.RunMigrations(db, cfg.DBName, zapLogger); err != nil {
		return err
	}

	redisClient, err := database.NewRedisClient(cfg, zapLogger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	collector := metrics.New()
	mailer := service.NewEmailService(service.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}, zapLogger)

	var store service.ObjectStore
	if cfg.S3Enabled() {
		s3Config, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return err
		}
		if err := s3Config.SetupBucketPolicy(ctx); err != nil {
			zapLogger.Warn("Failed to apply bucket policy", zap.String("bucket", s3Config.BucketName), zap.Error(err))
		}
		store = service.NewS3Store(s3Config)
	} else {
		zapLogger.Warn("S3 not configured, recipe image uploads are disabled")
	}
	images := service.NewImageService(store, cfg.ImageMaxBytes, collector, zapLogger)

	// comments fan out through Redis when available so every instance
	// sees them; otherwise the hub publishes locally
	hub := realtime.NewHub(32, collector, zapLogger)
	var publisher realtime.Publisher = hub
	if redisClient != nil {
		bridge := realtime.NewRedisBridge(redisClient, hub, zapLogger)
		publisher = bridge
		go bridge.Run(ctx)
	}

	var chatStore service.ChatStore = service.NewMemoryChatStore()
	if redisClient != nil {
		chatStore = service.NewRedisChatStore(redisClient)
	}

	var completer service.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = service.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, 60*time.Second)
	} else {
		zapLogger.Warn("OpenAI API key not configured, the recipe assistant is disabled")
	}

	authService := service.NewAuthService(db, service.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTExpiration,
		Redis:     redisClient,
		Mailer:    mailer,
		Metrics:   collector,
	}, zapLogger)

	deps := &api.Dependencies{
		DB:        db,
		Redis:     redisClient,
		Auth:      authService,
		Profiles:  service.NewProfileService(db, zapLogger),
		Recipes:   service.NewRecipeService(db, images, collector, zapLogger),
		Comments:  service.NewCommentService(db, publisher, collector, zapLogger),
		Ratings:   service.NewRatingService(db, collector, zapLogger),
		Accounts:  service.NewAccountService(db, images, mailer, zapLogger),
		Assistant: service.NewAssistantService(db, chatStore, completer, service.AssistantConfig{
			Model:             cfg.OpenAIModel,
			MaxTokens:         cfg.AssistantMaxTokens,
			Temperature:       cfg.AssistantTemperature,
			RequestsPerSecond: cfg.AssistantRPS,
		}, collector, zapLogger),
		Streamer: realtime.NewStreamer(hub, cfg.AllowedOrigins, 30*time.Second, zapLogger),

		RecipeCreationLimiter:     middleware.NewRecipeCreationRateLimiter(redisClient, zapLogger),
		RecipeModificationLimiter: middleware.NewRecipeModificationRateLimiter(redisClient, zapLogger),
		CommentLimiter:            middleware.NewCommentRateLimiter(redisClient, zapLogger),
		AssistantLimiter:          middleware.NewAssistantRateLimiter(redisClient, zapLogger),

		ImageMaxBytes: cfg.ImageMaxBytes,
		Logger:        zapLogger,
	}

	handler := router.SetupRouter(deps, router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        collector,
		Logger:         zapLogger,
	})
	srv := server.New(cfg, handler, zapLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	case <-ctx.Done():
		zapLogger.Info("Received shutdown signal")
	}

	return srv.Shutdown(context.Background())
}
