package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/voicetranslator/api/internal/client"
	"github.com/voicetranslator/api/internal/config"
	"github.com/voicetranslator/api/internal/handler"
	"github.com/voicetranslator/api/internal/middleware"
	"github.com/voicetranslator/api/internal/service"
	"github.com/voicetranslator/api/internal/store"
	"github.com/voicetranslator/api/internal/worker"
	ws "github.com/voicetranslator/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	redisAvailable := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
		redisAvailable = false
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Job store — Redis when reachable, in-memory fallback for local dev
	var jobStore store.JobStore
	if redisAvailable {
		jobStore = store.NewRedisStore(redisClient, cfg.Pipeline.JobRetention)
	} else {
		log.Println("Info: using in-memory job store")
		jobStore = store.NewMemoryStore()
	}

	// Storage client (falls back to in-memory mock when unconfigured)
	var storageClient client.StorageClient
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		s3Client, err := client.NewS3Client(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize storage client: %v", err)
		}
		storageClient = s3Client
	} else {
		log.Println("Info: storage not configured, using mock storage")
		storageClient = client.NewMockStorage(cfg.Storage.BucketName)
	}

	// External inference/translation/synthesis clients with mock fallbacks
	var inference client.InferenceInvoker
	whisperClient := client.NewWhisperClient(&cfg.Whisper, storageClient)
	if whisperClient.IsConfigured() {
		inference = whisperClient
	} else {
		log.Println("Info: whisper endpoint not configured, using mock inference")
		inference = client.NewMockInference()
	}

	var translator client.Translator
	translateClient := client.NewTranslateClient(&cfg.Translate)
	if translateClient.IsConfigured() {
		translator = translateClient
	} else {
		log.Println("Info: translate endpoint not configured, using mock translator")
		translator = client.MockTranslator{}
	}

	var synthesizer client.SpeechSynthesizer
	speechClient := client.NewSpeechClient(&cfg.Speech)
	if speechClient.IsConfigured() {
		synthesizer = speechClient
	} else {
		log.Println("Info: speech endpoint not configured, using mock synthesizer")
		synthesizer = client.MockSynthesizer{}
	}

	// Initialize services
	translationService := service.NewTranslationService(
		jobStore, asynqClient, storageClient, hub,
		cfg.Pipeline.OverallTimeout, cfg.Pipeline.JobRetention,
	)

	// Initialize handlers
	translationHandler := handler.NewTranslationHandler(translationService, validate)
	uploadHandler := handler.NewUploadHandler(translationService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":     redisAvailable,
				"whisper":   whisperClient.IsConfigured(),
				"translate": translateClient.IsConfigured(),
				"speech":    speechClient.IsConfigured(),
				"storage":   cfg.Storage.AccessKeyID != "",
				"auth":      cfg.JWT.Secret != "",
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/languages", translationHandler.Languages)

	translations := api.Group("/translations")
	translations.Post("/", rateLimiter.TranslationLimit(cfg.RateLimit.TranslationsPerHour), translationHandler.Start)
	translations.Get("/", translationHandler.List)
	translations.Get("/:jobId", translationHandler.Get)

	uploads := api.Group("/uploads", rateLimiter.UploadLimit(cfg.RateLimit.UploadsPerHour))
	uploads.Post("/", uploadHandler.Create)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, ws.WildcardJobID)
	}))

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobStore, hub, inference, translator, synthesizer, storageClient)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobStore store.JobStore,
	hub *ws.Hub,
	inference client.InferenceInvoker,
	translator client.Translator,
	synthesizer client.SpeechSynthesizer,
	storageClient client.StorageClient,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Pipeline.QueueConcurrency,
			Queues: map[string]int{
				service.QueuePipeline: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	synth := worker.NewTranslateSynthesizer(translator, synthesizer, storageClient)
	pipelineWorker := worker.NewPipelineWorker(
		jobStore, hub, inference, synth,
		cfg.Pipeline.PollInterval, cfg.Pipeline.OverallTimeout,
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypePipeline, pipelineWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
