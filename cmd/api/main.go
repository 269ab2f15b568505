package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"theagentvikram/resumatch/internal/bootstrap"
	"theagentvikram/resumatch/internal/config"
	"theagentvikram/resumatch/internal/handlers"
	"theagentvikram/resumatch/internal/spa"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Println("✅ Config loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.Build(ctx, cfg, bootstrap.Options{Background: true})
	if err != nil {
		log.Fatalf("❌ Failed to initialize services: %v", err)
	}

	// Start worker
	container.Worker.Start(ctx)
	log.Println("✅ Worker started successfully")

	frontend := spa.HasBuild(cfg.Server.StaticDir)
	routes := &handlers.Routes{
		System: handlers.NewSystemHandler(frontend),
		Analyze: handlers.NewAnalyzeHandler(
			container.Analyzer,
			container.Extractor,
			container.ModelStatus,
			cfg.Storage.MaxFileSize,
		),
		Upload: handlers.NewUploadHandler(container.Ingest, cfg.Storage.MaxFileSize),
		Resumes: handlers.NewResumeHandler(
			container.Resumes,
			container.Storage,
			container.Ingest,
		),
		Search:       handlers.NewSearchHandler(container.Search, container.Resumes),
		Auth:         handlers.NewAuthHandler(container.Auth),
		Tokens:       container.Auth,
		AuthRequired: cfg.Auth.Required,
		RateLimit:    cfg.Server.RateLimit,
	}
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ResuMatch API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * handlers.MaxBulkFiles,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.CORSOrigins, ","),
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	routes.Register(app)
	spa.Register(app, cfg.Server.StaticDir)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Println("\n🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 API health check: http://localhost%s/api/health\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Printf("❌ Failed to start server: %v", err)
	}

	if err := container.Close(); err != nil {
		log.Printf("⚠️  Error during cleanup: %v", err)
	}
	log.Println("👋 Server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
