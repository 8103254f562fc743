package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/config"
	"alfredoptarigan/interview-onboarding/internal/handlers"
	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/onboarding"
	"alfredoptarigan/interview-onboarding/internal/repositories"
	"alfredoptarigan/interview-onboarding/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	zlog.Info("config loaded", zap.String("env", cfg.Server.Env))

	// Initialize database
	db, err := config.InitDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	resumeRepo := repositories.NewResumeRepository(db)
	onboardingRepo := repositories.NewOnboardingRepository(db)

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zlog.Fatal("failed to create upload directory", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini, zlog.Named("gemini"))
	if err != nil {
		zlog.Fatal("failed to initialize gemini", zap.Error(err))
	}

	promptBuilder := services.NewPromptBuilder()

	questionGenerator, err := services.NewQuestionGenerator(geminiService, promptBuilder, zlog.Named("questions"))
	if err != nil {
		zlog.Fatal("failed to initialize question generator", zap.Error(err))
	}

	// The index is optional: without it summaries are generated from the resume summary alone.
	var resumeIndex services.ResumeIndex
	if index, err := services.NewResumeIndex(cfg.Qdrant, zlog.Named("qdrant")); err != nil {
		zlog.Warn("qdrant unavailable, resume retrieval disabled", zap.Error(err))
	} else if err := index.InitCollection(ctx); err != nil {
		zlog.Warn("failed to initialize qdrant collection, resume retrieval disabled", zap.Error(err))
	} else {
		resumeIndex = index
	}

	cache := onboarding.NewSessionCache(cfg.Onboarding.SessionCacheSize)

	worker := services.NewQuestionBankWorker(onboardingRepo, questionGenerator, cache, cfg.Worker, zlog.Named("worker"))

	onboardingService := onboarding.NewService(onboarding.Dependencies{
		Conversations: onboardingRepo,
		Users:         userRepo,
		Welcome:       services.NewWelcomeGenerator(geminiService, promptBuilder),
		Summaries: services.NewOnboardingSummaryGenerator(
			geminiService,
			promptBuilder,
			resumeRepo,
			resumeIndex,
			cfg.Worker.RetryMaxAttempts,
			zlog.Named("summary"),
		),
		Scheduler:   worker,
		Cache:       cache,
		MaxAttempts: cfg.Onboarding.MaxAttempts,
		Logger:      zlog.Named("onboarding"),
	})

	resumeService := services.NewResumeService(services.ResumeDependencies{
		Users:         userRepo,
		Resumes:       resumeRepo,
		Storage:       storageService,
		PDFParser:     services.NewPDFParserService(),
		Chunker:       services.NewTextChunker(),
		Gemini:        geminiService,
		PromptBuilder: promptBuilder,
		Index:         resumeIndex,
		Conversations: onboardingService,
		MaxRetries:    cfg.Worker.RetryMaxAttempts,
		Logger:        zlog.Named("resume"),
	})

	worker.Start(ctx)

	// Initialize handlers
	onboardingHandler := handlers.NewOnboardingHandler(onboardingService, zlog.Named("http"))
	resumeHandler := handlers.NewResumeHandler(resumeService, cfg.Storage.MaxFileSize, zlog.Named("http"))

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Interview Onboarding API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	handlers.RegisterRoutes(app.Group("/api/v1"), onboardingHandler, resumeHandler)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Interview Onboarding API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/onboarding/chat",
				"GET /api/v1/onboarding/:user_id",
				"GET /api/v1/onboarding/:user_id/chats",
				"POST /api/v1/onboarding/:user_id/summary",
				"DELETE /api/v1/onboarding/:id",
				"POST /api/v1/resumes",
				"GET /api/v1/resumes/:user_id",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zlog.Info("shutting down server")
		cancel()
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			zlog.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}
