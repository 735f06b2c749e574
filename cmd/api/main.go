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

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/recapcrew/recap-engine/pkg/validator"

	"github.com/recapcrew/recap-engine/internal/adapter/handler"
	"github.com/recapcrew/recap-engine/internal/adapter/repository"
	"github.com/recapcrew/recap-engine/internal/infrastructure/cache"
	"github.com/recapcrew/recap-engine/internal/infrastructure/database"
	"github.com/recapcrew/recap-engine/internal/infrastructure/storage"
	"github.com/recapcrew/recap-engine/internal/usecase/authz"
	"github.com/recapcrew/recap-engine/internal/usecase/contract"
	"github.com/recapcrew/recap-engine/internal/usecase/ingest"
	"github.com/recapcrew/recap-engine/internal/usecase/meeting"
	"github.com/recapcrew/recap-engine/internal/usecase/recon"
	"github.com/recapcrew/recap-engine/internal/usecase/review"
	"github.com/recapcrew/recap-engine/internal/usecase/similarity"
	pkgai "github.com/recapcrew/recap-engine/pkg/ai"
	"github.com/recapcrew/recap-engine/pkg/config"
	"github.com/recapcrew/recap-engine/pkg/jwt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate in CI/CD.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("DB_AUTO_MIGRATE is enabled in production. Manage schema with sql-migrate instead.")
		}
		log.Println("🔄 Running migrations (development only) ...")
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; apply them with sql-migrate in CI/CD/production")
	}

	// Initialize ingestion deduper. Redis dedups across instances; fall back
	// to the in-process deduper when Redis is unreachable.
	log.Println("📦 Connecting to Redis...")
	var deduper ingest.Deduper
	redisDeduper, err := cache.NewRedisDeduper(&cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-process ingestion dedup", zap.Error(err))
		deduper = cache.NewMemoryDeduper()
	} else {
		defer redisDeduper.Close()
		deduper = redisDeduper
	}

	// Initialize object storage
	log.Println("🗄️  Connecting to object storage...")
	store, err := storage.NewMinIOClient(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to object storage: %v", err)
	}

	// Initialize JWT manager
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	meetingRepo := repository.NewMeetingRepository(db)
	entityRepo := repository.NewProjectEntityRepository(db)
	reconRepo := repository.NewReconciliationRepository(db)
	lockRepo := repository.NewLockRepository(db)

	// Initialize AI clients
	log.Println("🤖 Initializing AI clients...")
	embedder := pkgai.NewHTTPEmbedder(&cfg.Embedding)
	extractionClient := pkgai.NewHTTPExtractionClient(&cfg.Extraction)

	// Initialize core services
	log.Println("✨ Initializing services...")
	authorizer := authz.NewClaimsAuthorizer()
	simService := similarity.NewService(embedder, cfg.Recon.SimilarityThreshold, logger)
	engine := recon.NewEngine(simService, logger)
	validator := contract.NewValidator()
	meetingService := meeting.NewService(meetingRepo, entityRepo, reconRepo, validator, engine, logger)
	lockManager := review.NewLockManager(lockRepo, authorizer, cfg.Review.LockTTL, logger)
	coordinator := ingest.NewCoordinator(
		meetingService,
		store,
		extractionClient,
		deduper,
		cfg.Ingest.ItemTimeout,
		cfg.Ingest.DedupTTL,
		logger,
	)

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	meetingHandler := handler.NewMeeting(meetingService, store, authorizer, logger)
	reviewHandler := handler.NewReview(lockManager, logger)
	ingestHandler := handler.NewIngest(coordinator, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, jwtManager, meetingHandler, reviewHandler, ingestHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server exited")
}
