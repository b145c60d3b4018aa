package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedbackr/internal/config"
	"feedbackr/internal/handlers"
	"feedbackr/internal/metrics"
	"feedbackr/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	if cfg.AI.Credential() == "" {
		log.Printf("⚠️  %s is not set; analysis requests will report the missing credential\n", cfg.AI.CredentialName())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(registry)

	// Initialize services
	tempStorage := services.NewTempStorage(cfg.Storage.TempDir, collector)
	if err := tempStorage.EnsureDir(); err != nil {
		log.Fatalf("❌ Failed to create temp directory: %v", err)
	}

	chatFactory, transcriberFactory, err := services.NewProviderFactories(services.ProviderOptions{
		Provider: cfg.AI.Provider,
		OpenAI: services.OpenAIOptions{
			BaseURL:         cfg.AI.OpenAIBaseURL,
			ChatModel:       cfg.AI.OpenAIChatModel,
			TranscribeModel: cfg.AI.OpenAITranscribeModel,
		},
		GeminiModel: cfg.AI.GeminiModel,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize AI provider: %v", err)
	}
	log.Printf("✅ AI provider %q initialized\n", cfg.AI.Provider)

	documentExtractor := services.NewPDFExtractor()
	audioExtractor := services.NewAudioExtractor(
		services.NewFFmpegTranscoder(cfg.Audio.FFmpegPath),
		transcriberFactory,
		cfg.AI.Credential,
		cfg.AI.CredentialName(),
	)
	feedbackGenerator := services.NewFeedbackGenerator(
		chatFactory,
		cfg.AI.Credential,
		cfg.AI.CredentialName(),
		services.BreakerSettings{
			Enabled:      cfg.Breaker.Enabled,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
			Timeout:      cfg.Breaker.Timeout,
		},
	)
	log.Println("✅ Services initialized successfully")

	analyzeHandler := handlers.NewAnalyzeHandler(
		tempStorage,
		documentExtractor,
		audioExtractor,
		feedbackGenerator,
		collector,
	)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Portfolio & Interview Feedback API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	// No session state is exposed, so any origin may call the API.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "*",
	}))

	handlers.SetupRoutes(app, analyzeHandler,
		adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
