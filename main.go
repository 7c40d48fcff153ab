// Package main provides the main entry point for the Next Step storefront backend
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nextstep/storefront/app/handlers"
	"github.com/nextstep/storefront/app/middleware"
	"github.com/nextstep/storefront/app/router"
	"github.com/nextstep/storefront/app/services"
	businessflow "github.com/nextstep/storefront/business_flow"
	"github.com/nextstep/storefront/config"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Next Step application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogOutput(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogOutput routes the standard logger to a rotating file when configured
func setupLogOutput(cfg config.LoggingConfig) {
	if cfg.Output != "file" || cfg.FilePath == "" {
		return
	}

	log.SetOutput(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// migrateDatabase applies the schema for all persisted entities
func migrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.OTPVerification{},
		&models.Address{},
		&models.Session{},
		&models.AuditLog{},
	)
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s", cfg.RedisURL)
	return rc, nil
}

// initializeEmailProvider selects the delivery backend from configuration
func initializeEmailProvider(cfg config.EmailConfig) services.EmailProvider {
	switch cfg.Provider {
	case "smtp":
		return services.NewSMTPEmailProvider(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail)
	default:
		return services.NewMockEmailProvider()
	}
}

// startMetricsServer exposes the Prometheus registry on its own port.
// The returned stop function shuts the listener down.
func startMetricsServer(cfg config.MetricsConfig) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server listening on :%d%s", cfg.Port, cfg.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := migrateDatabase(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPVerificationRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Sessions live in Redis when the cache is enabled, otherwise in Postgres
	var sessionStore repository.SessionStore
	if rc != nil {
		sessionStore = repository.NewRedisSessionStore(rc, cfg.Cache.RedisPrefix)
	} else {
		sessionStore = repository.NewDBSessionStore(db)
	}

	// Initialize services
	sessionSvc := services.NewSessionService(sessionStore, cfg.Security.SessionTimeout)
	notificationSvc := services.NewNotificationService(initializeEmailProvider(cfg.Email))
	imageSvc := services.NewLocalImageService(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix)

	// Ensure the bootstrap admin account exists
	if err := ensureAdminAccount(db, userRepo, cfg.Admin, cfg.Security.BcryptCost); err != nil {
		return nil, err
	}

	// Initialize flows
	signupFlow := businessflow.NewSignupFlow(userRepo, otpRepo, auditRepo, sessionSvc, notificationSvc, db)
	loginFlow := businessflow.NewLoginFlow(userRepo, otpRepo, auditRepo, sessionSvc, notificationSvc, db)
	profileFlow := businessflow.NewProfileFlow(userRepo, addressRepo, auditRepo, sessionSvc, imageSvc)
	addressFlow := businessflow.NewAddressFlow(addressRepo, db)
	adminFlow := businessflow.NewAdminFlow(userRepo, auditRepo, sessionSvc)
	homeFlow := businessflow.NewHomeFlow()

	// Initialize handlers
	cookieCfg := handlers.SessionCookieConfig{
		Name:   cfg.Security.SessionCookieName,
		Secure: cfg.Security.SessionCookieSecure,
	}

	routerHandlers := router.Handlers{
		Auth:    handlers.NewAuthHandler(signupFlow, loginFlow, cookieCfg),
		Profile: handlers.NewProfileHandler(profileFlow, cookieCfg),
		Address: handlers.NewAddressHandler(addressFlow),
		Admin:   handlers.NewAdminHandler(adminFlow, loginFlow, cookieCfg),
		Home:    handlers.NewHomeHandler(homeFlow),
	}

	// Initialize session gate
	gate := middleware.NewSessionGate(sessionSvc, userRepo, cfg.Security.SessionCookieName)

	// Initialize router
	appRouter := router.NewFiberRouter(cfg, gate, routerHandlers)

	if cfg.Metrics.Enabled {
		stopFuncs = append(stopFuncs, startMetricsServer(cfg.Metrics))
	}

	application := &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureAdminAccount creates the back-office administrator from configuration
// when no account with that email exists yet.
func ensureAdminAccount(db *gorm.DB, userRepo repository.UserRepository, cfg config.AdminConfig, bcryptCost int) error {
	if cfg.Email == "" {
		return nil
	}

	ctx := context.Background()

	existing, err := userRepo.ByEmail(ctx, cfg.Email)
	if err != nil {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		return fmt.Errorf("failed to generate referral code: %w", err)
	}

	admin := &models.User{
		UUID:         uuid.New(),
		FirstName:    cfg.FirstName,
		LastName:     cfg.LastName,
		Email:        cfg.Email,
		Phone:        "",
		PasswordHash: utils.ToPtr(string(hash)),
		Role:         utils.RoleAdmin,
		SignupMethod: utils.SignupMethodEmail,
		ProfileImage: utils.DefaultProfileImage,
		IsActive:     utils.ToPtr(true),
		IsBlocked:    utils.ToPtr(false),
		IsVerified:   utils.ToPtr(true),
		ReferralCode: referralCode,
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}

	if err := userRepo.Save(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	log.Printf("Bootstrap admin account created for %s", cfg.Email)
	return nil
}
