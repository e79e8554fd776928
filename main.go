package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/crms-ng/crms-backend/database"
	"github.com/crms-ng/crms-backend/internal/handlers"
	"github.com/crms-ng/crms-backend/internal/jobs"
	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/routes"
	"github.com/crms-ng/crms-backend/internal/services"
	"github.com/crms-ng/crms-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	var store storage.Store
	var db *gorm.DB

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()
		db = database.DB

		log.Println("🔄 Running database migrations...")
		err := db.AutoMigrate(
			&models.Officer{},
			&models.Person{},
			&models.WantedRecord{},
			&models.MissingAlert{},
			&models.CriminalRecord{},
			&models.Vehicle{},
			&models.QueryLog{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(db)
	}
	storage.SetStore(store)

	// Twilio is optional: without it, abuse findings only go to the logs
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio not configured - abuse alerts limited to logs: %v", err)
		twilioService = nil
	} else {
		log.Println("✅ Twilio service initialized")
	}

	// Core USSD services
	sessions := services.NewSessionStore(services.SessionTTLFromEnv())
	authGate := services.NewAuthGate(store)
	limiter := services.NewRateLimiter(store, services.FailOpenFromEnv())
	audit := services.NewAuditLogger(store)
	detector := services.NewAbuseDetector(store)
	ussdService := services.NewUSSDService(store, sessions, authGate, limiter, audit)

	// Scheduled abuse sweep
	abuseJob := jobs.NewAbuseScanJob(store, detector, twilioService)
	abuseJob.Start()

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "CRMS USSD Gateway v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Routes
	ussdHandler := handlers.NewUSSDHandler(ussdService)
	adminHandler := handlers.NewAdminHandler(store, audit, detector)
	healthHandler := handlers.NewHealthHandler(db, sessions)
	routes.SetupRoutes(app, ussdHandler, adminHandler, healthHandler)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		abuseJob.Stop()
		sessions.Stop()
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 CRMS USSD Gateway starting on port %s", port)
	log.Printf("📊 Storage: %s", storageType())
	log.Printf("🌍 Environment: %s", environment())
	log.Printf("⏱️  Session TTL: %s", services.SessionTTLFromEnv())
	log.Printf("🔓 Rate limit fail-open: %v", services.FailOpenFromEnv())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func environment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
