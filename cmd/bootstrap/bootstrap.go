package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gabfadel/gab-health/config"
	deliveryHttp "github.com/gabfadel/gab-health/internal/delivery/http"
	"github.com/gabfadel/gab-health/internal/delivery/http/handler"
	"github.com/gabfadel/gab-health/internal/delivery/http/middleware"
	"github.com/gabfadel/gab-health/internal/infrastructure/cache"
	"github.com/gabfadel/gab-health/internal/infrastructure/database"
	"github.com/gabfadel/gab-health/internal/repository"
	"github.com/gabfadel/gab-health/internal/service"
	"github.com/gabfadel/gab-health/internal/usecase"
	"github.com/gabfadel/gab-health/internal/worker"
	"github.com/gabfadel/gab-health/pkg/jwt"
	"github.com/gabfadel/gab-health/pkg/metrics"
	"github.com/gabfadel/gab-health/pkg/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const metricsNamespace = "gab_health"

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Server      *http.Server
	Sweeper     *worker.AppointmentSweeper
}

// Connect loads configuration and opens the database. It is enough for the
// migrate and sweep commands.
func Connect() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	app.Log = setupLogger(cfg.Log)
	app.Log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	app.Log.Info("Database connected successfully")

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.New(metricsNamespace, app.Registry)

	return app, nil
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app, err := Connect()
	if err != nil {
		return nil, err
	}

	if err := database.MigrateUp(app.DB); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	app.Log.Info("Database migrations applied")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(app.Config.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	app.Log.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initializeServer(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

// NewSweeper builds the expiry sweeper on top of the app's database
func (app *App) NewSweeper() *worker.AppointmentSweeper {
	return worker.NewAppointmentSweeper(
		app.Log,
		repository.NewAppointmentRepository(app.DB),
		service.NewAuditService(app.Log, repository.NewAuditLogRepository(app.DB)),
		app.Metrics,
		app.Config.Sweeper.Interval,
	)
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer() error {
	cfg := app.Config
	log := app.Log

	// Medication lookup cache
	store, err := cache.NewStore(cfg.Cache.Driver, app.RedisClient, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	userRepo := repository.NewUserRepository(app.DB)
	appointmentRepo := repository.NewAppointmentRepository(app.DB)
	medicationRepo := repository.NewMedicationRepository(app.DB)
	medicalRecordRepo := repository.NewMedicalRecordRepository(app.DB)
	auditLogRepo := repository.NewAuditLogRepository(app.DB)

	// Initialize services
	tokenStore := service.NewRedisTokenStore(app.RedisClient)
	auditService := service.NewAuditService(log, auditLogRepo)
	fetcher := service.NewMedicationFetcher(log, store, app.Metrics, cfg.OpenFDA, cfg.Cache)
	enricher := service.NewMedicationEnricher(log, medicationRepo, fetcher, app.Metrics)

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(log, userRepo, jwtService, tokenStore, auditService)
	appointmentUsecase := usecase.NewAppointmentUsecase(log, appointmentRepo, userRepo, auditService, app.Metrics)
	medicalRecordUsecase := usecase.NewMedicalRecordUsecase(log, medicalRecordRepo, userRepo, enricher, fetcher, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, auditLogRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(log, authUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(log, appointmentUsecase, customValidator)
	medicalRecordHandler := handler.NewMedicalRecordHandler(log, medicalRecordUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(log, auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenStore)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigin)
	metricsMiddleware := middleware.NewMetricsMiddleware(app.Metrics)

	// Initialize router
	router := deliveryHttp.NewRouter(
		authHandler,
		appointmentHandler,
		medicalRecordHandler,
		auditLogHandler,
		authMiddleware.Authenticate,
		corsMiddleware,
		metricsMiddleware,
		app.Registry,
	)

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Sweeper.Enabled {
		app.Sweeper = app.NewSweeper()
	}

	return nil
}

// Run starts the HTTP server and the sweeper, then handles graceful shutdown
func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	if app.Sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.Sweeper.Start(ctx)
		}()
	}

	// Start server in goroutine
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()

	cancel()
	wg.Wait()

	// Close connections
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
