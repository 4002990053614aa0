// main.go
package main

import (
	"log"
	"os"
	"time"

	"github.com/nouralddin-abdullah/together/database"
	"github.com/nouralddin-abdullah/together/handlers"
	"github.com/nouralddin-abdullah/together/middleware"
	"github.com/nouralddin-abdullah/together/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Validate critical environment variables
	validateEnvironment()

	// Initialize database
	database.InitDB()

	// Build the service graph behind the handlers
	clock := services.NewSystemClock()
	midnight := handlers.Init(clock)

	// Schedule the midnight streak checks
	if err := midnight.Start(); err != nil {
		log.Fatalf("FATAL: failed to start midnight scheduler: %v", err)
	}
	defer midnight.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.FiberRateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.FiberAuthRateLimitMiddleware())
	authGroup.Post("/guest", handlers.GuestLogin)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/register", handlers.Register)

	// User routes (require authentication)
	userGroup := api.Group("/users")
	userGroup.Use(middleware.AuthMiddleware)
	userGroup.Get("/me", handlers.GetMe)
	userGroup.Put("/me", handlers.UpdateMe)

	// Team routes
	teamGroup := api.Group("/teams")
	teamGroup.Use(middleware.AuthMiddleware)
	teamGroup.Post("/", handlers.CreateTeam)
	teamGroup.Post("/join", handlers.JoinTeam)
	teamGroup.Post("/start", handlers.StartChallenge)
	teamGroup.Get("/mine", handlers.GetMyTeam)
	teamGroup.Get("/members", handlers.GetTeamMembers)
	teamGroup.Post("/leave", handlers.LeaveTeam)
	teamGroup.Get("/chat", handlers.GetTeamChat)

	// Habit routes
	habitGroup := api.Group("/habits")
	habitGroup.Use(middleware.AuthMiddleware)
	habitGroup.Post("/check-in", handlers.CheckIn)
	habitGroup.Post("/report-slip", handlers.ReportSlip)
	habitGroup.Get("/me/today", handlers.GetMyTodayStatus)
	habitGroup.Get("/team/today", handlers.GetTeamTodayStatus)

	// Stats routes
	statsGroup := api.Group("/stats")
	statsGroup.Use(middleware.AuthMiddleware)
	statsGroup.Get("/team", handlers.GetTeamStats)
	statsGroup.Get("/me", handlers.GetMyStats)
	statsGroup.Get("/attempts", handlers.GetTeamAttemptHistory)
	statsGroup.Get("/attempts/:id", handlers.GetAttemptDetail)

	// Admin routes
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AdminAuthMiddleware)
	adminGroup.Post("/reconcile", handlers.RunReconcile)

	// WebSocket team rooms
	app.Use("/ws", middleware.WebSocketAuthMiddleware, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(handlers.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("FATAL: server failed: %v", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
