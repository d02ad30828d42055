package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/config"
	"go-brokerage-crm/internal/handler"
	"go-brokerage-crm/internal/mailer"
	"go-brokerage-crm/internal/middleware"
	"go-brokerage-crm/internal/obs"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/service"
	"go-brokerage-crm/internal/storage"
	"go-brokerage-crm/internal/ws"
	"go-brokerage-crm/pkg/database"
	"go-brokerage-crm/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Setup Database
	db := database.ConnectDB(cfg.DatabaseURL)
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// 3. Infrastructure
	signer, err := jwt.NewSigner(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		log.Fatalf("Session signer: %v", err)
	}
	blobs, err := storage.NewDisk(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Upload directory: %v", err)
	}
	mail := mailer.New(cfg.SMTP, log.Default())
	if !mail.Enabled() {
		log.Println("Warning: SMTP not configured, password reset codes will not be delivered")
	}
	metrics := obs.New()

	wsHub := ws.NewHub()
	go wsHub.Run()

	// 4. Dependency Injection (Wiring Layers)
	employeeRepo := repository.NewEmployeeRepo(db)
	clientRepo := repository.NewClientRepo(db)
	taskRepo := repository.NewTaskRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)
	brokerageRepo := repository.NewBrokerageRepo(db)
	documentRepo := repository.NewDocumentRepo(db)
	otpRepo := repository.NewOTPRepo(db)

	notificationService := service.NewNotificationService(notificationRepo, wsHub)
	authService := service.NewAuthService(employeeRepo, otpRepo, signer, mail)
	employeeService := service.NewEmployeeService(employeeRepo)
	clientService := service.NewClientService(clientRepo, employeeRepo)
	taskService := service.NewTaskService(taskRepo, employeeRepo, clientRepo, notificationService)
	brokerageService := service.NewBrokerageService(brokerageRepo, clientRepo, notificationService)
	documentService := service.NewDocumentService(documentRepo, clientRepo, blobs, int64(cfg.MaxUploadBytes))
	dashService := service.NewDashboardService(employeeRepo, clientRepo, taskRepo, brokerageRepo, notificationRepo)

	if cfg.SeedAdminEmail != "" {
		seeded, err := employeeService.SeedSuperAdmin(cfg.SeedAdminEmail, cfg.SeedAdminPassword, "Super Administrator")
		if err != nil {
			log.Printf("Warning: Failed to seed super admin: %v", err)
		} else if seeded {
			log.Printf("Super admin created: %s", cfg.SeedAdminEmail)
		}
	}

	authn := middleware.NewAuthenticator(authService, signer, middleware.SessionOptions{
		RenewAfter:   cfg.Session.RenewAfter,
		CookieSecure: cfg.Session.CookieSecure,
	})
	loginLimiter := middleware.NewKeyedLimiter(cfg.LoginRatePerMin, cfg.LoginBurst, 10*time.Minute)

	authHandler := handler.NewAuthHandler(authService, signer, cfg.Session.CookieSecure, metrics)
	sessionHandler := handler.NewSessionHandler()
	roleHandler := handler.NewRoleHandler()
	employeeHandler := handler.NewEmployeeHandler(employeeService)
	clientHandler := handler.NewClientHandler(clientService)
	taskHandler := handler.NewTaskHandler(taskService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	brokerageHandler := handler.NewBrokerageHandler(brokerageService)
	documentHandler := handler.NewDocumentHandler(documentService)
	dashHandler := handler.NewDashboardHandler(dashService)
	wsHandler := handler.NewWSHandler(wsHub)

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Brokerage CRM v1.0",
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    cfg.MaxUploadBytes + 1<<20, // multipart overhead
	})

	// Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(logger.New())  // Logging request
	app.Use(cors.New())    // CORS
	app.Use(metrics.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "error": "database unavailable"})
		}
		return c.JSON(fiber.Map{"success": true})
	})
	app.Get("/metrics", metrics.Handler())

	// Session resolution, then the page gate
	app.Use(authn.Resolve())
	app.Use(middleware.RouteGate(metrics))

	// 6. Routes
	api := app.Group("/api")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(loginLimiter), authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/forgot-password", middleware.RateLimit(loginLimiter), authHandler.ForgotPassword)
	auth.Post("/reset-password", middleware.RateLimit(loginLimiter), authHandler.ResetPassword)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireSession())

	protected.Post("/auth/change-password", authHandler.ChangePassword)
	protected.Get("/session", sessionHandler.Get)
	protected.Put("/session/active-role", sessionHandler.SetActiveRole)
	protected.Get("/roles", roleHandler.GetRoles)

	// Employee master
	admins := middleware.RequireRoles(authz.Admins...)
	protected.Get("/employees", admins, employeeHandler.GetEmployees)
	protected.Get("/employees/:id", admins, employeeHandler.GetEmployee)
	protected.Post("/employees", admins, employeeHandler.CreateEmployee)
	protected.Put("/employees/:id", admins, employeeHandler.UpdateEmployee)
	protected.Delete("/employees/:id", middleware.RequireRoles(authz.SuperAdmin...), employeeHandler.DeleteEmployee)

	// Client master
	protected.Get("/clients/export", admins, clientHandler.ExportClients)
	protected.Get("/clients", middleware.RequireRoles(authz.ClientDesk...), clientHandler.GetClients)
	protected.Get("/clients/:id", middleware.RequireRoles(authz.ClientDesk...), clientHandler.GetClient)
	protected.Post("/clients", admins, clientHandler.CreateClient)
	protected.Put("/clients/:id", admins, clientHandler.UpdateClient)
	protected.Delete("/clients/:id", middleware.RequireRoles(authz.SuperAdmin...), clientHandler.DeleteClient)

	// Tasks
	protected.Get("/tasks", taskHandler.GetTasks)
	protected.Post("/tasks", admins, taskHandler.CreateTask)
	protected.Patch("/tasks/:id/status", taskHandler.UpdateTaskStatus)

	// Notifications
	protected.Get("/notifications", notificationHandler.GetNotifications)
	protected.Patch("/notifications/:id/read", notificationHandler.MarkRead)
	protected.Post("/notifications/read-all", notificationHandler.MarkAllRead)

	// Brokerage
	protected.Post("/brokerage/upload", admins, brokerageHandler.UploadBrokerage)
	protected.Get("/brokerage", admins, brokerageHandler.GetReport)
	protected.Get("/brokerage/export", admins, brokerageHandler.ExportReport)

	// Documents
	documents := middleware.RequireRoles(authz.Documents...)
	protected.Post("/documents", documents, documentHandler.UploadDocument)
	protected.Get("/documents", documents, documentHandler.GetDocuments)
	protected.Get("/documents/:id/download", documents, documentHandler.DownloadDocument)

	// Dashboards
	protected.Get("/dashboard/stats", admins, dashHandler.GetDashboardStats)
	protected.Get("/dashboard/me", dashHandler.GetMySummary)

	api.Use(func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	// WebSocket Route
	app.Use("/ws", wsHandler.Upgrade)
	app.Get("/ws", wsHandler.Serve())

	// Web UI; unknown paths fall back to index.html for client-side routing
	app.Static("/", cfg.WebDir)
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(cfg.WebDir, "index.html"))
	})

	// 7. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	wsHub.Stop()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited")
}
