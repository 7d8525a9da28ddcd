package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"matricula_app_echo/internal/handlers"
	"matricula_app_echo/internal/middleware"
	"matricula_app_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis (per-enrollment payment locks)
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	cache, err := services.NewRedisCache(redisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()

	// Voucher file storage
	storage, err := services.NewLocalFileStorage(os.Getenv("VOUCHER_STORAGE_DIR"))
	if err != nil {
		log.Fatalf("Failed to initialize voucher storage: %v", err)
	}

	// Firebase Cloud Messaging for staff notifications (optional)
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}
	fcmClient, err := services.InitFirebase(credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Push notifications disabled until valid credentials are provided")
	}

	// Services
	notifier := services.NewNotificationService(db, services.NewEmailService(), services.NewWahaService(), fcmClient)
	ledger := services.NewLedgerService(db, cache, storage, notifier)
	allocator := services.NewAllocatorService(db, cache, notifier)
	progress := services.NewProgressService(db)
	enrollments := services.NewEnrollmentService(db)
	planChange := services.NewPlanChangeService(db, cache)
	gateway := services.NewGatewayService()
	payments := services.NewPaymentService(db, gateway, allocator)

	// Create Echo instance
	e := echo.New()
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = middleware.CustomErrorHandler

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())

	// Handlers
	paymentHandler := handlers.NewPaymentHandler(ledger, allocator, payments)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollments, progress, planChange)

	// Enrollment routes
	e.POST("/enrollments", enrollmentHandler.Enroll)
	e.GET("/enrollments/:id/progress", enrollmentHandler.Progress)
	e.POST("/enrollments/change-plan", enrollmentHandler.ChangePlan)
	e.GET("/students/:id/plan-change-eligibility", enrollmentHandler.CanChangePlan)

	// Payment routes
	e.POST("/installments/:id/vouchers", paymentHandler.UploadVoucher)
	e.POST("/enrollments/:id/payments", paymentHandler.DistributePayment)
	e.POST("/vouchers/:id/verify", paymentHandler.VerifyVoucher)
	e.POST("/vouchers/:id/reject", paymentHandler.RejectVoucher)
	e.POST("/vouchers/:id/replace", paymentHandler.ReplaceVoucher)
	e.GET("/vouchers/:id/file", paymentHandler.DownloadVoucherFile)
	e.POST("/payments/card", paymentHandler.ChargeCard)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
