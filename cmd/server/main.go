package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	redisclient "github.com/sjwg/reporter-backend/internal/clients/redis"
	"github.com/sjwg/reporter-backend/internal/data/db"
	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/http/handlers"
	"github.com/sjwg/reporter-backend/internal/http/middleware"
	"github.com/sjwg/reporter-backend/internal/jobs"
	"github.com/sjwg/reporter-backend/internal/jobs/pipeline/report_process"
	"github.com/sjwg/reporter-backend/internal/platform/envutil"
	"github.com/sjwg/reporter-backend/internal/platform/groq"
	"github.com/sjwg/reporter-backend/internal/platform/localfiles"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
	"github.com/sjwg/reporter-backend/internal/platform/ocrx"
	"github.com/sjwg/reporter-backend/internal/server"
	"github.com/sjwg/reporter-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	jwtSecretKey := envutil.String("JWT_SECRET_KEY", "")
	if jwtSecretKey == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	accessTTL := envutil.Duration("ACCESS_TOKEN_TTL", 30*time.Minute)
	refreshTTL := envutil.Duration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	uploadRoot := envutil.String("UPLOAD_ROOT", "uploads")

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	gdb := dbService.DB()

	// Repos
	userRepo := repos.NewUserRepo(gdb, log)
	reportRepo := repos.NewReportRepo(gdb, log)
	jobRunRepo := repos.NewJobRunRepo(gdb, log)

	// File store
	store, err := localfiles.NewStore(uploadRoot, log)
	if err != nil {
		log.Fatal("Could not init file store", "error", err)
	}

	// Services
	authService := services.NewAuthService(gdb, log, userRepo, jwtSecretKey, accessTTL, refreshTTL)
	reportService := services.NewReportService(gdb, log, reportRepo, jobRunRepo, store)

	// Worker (in-process unless RUN_WORKER=false; a dedicated worker binary
	// exists for split deployments)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if envutil.Bool("RUN_WORKER", true) {
		groqClient, gErr := groq.NewClient(log)
		if gErr != nil {
			log.Fatal("Could not init completion client", "error", gErr)
		}
		if groqClient == nil {
			log.Warn("GROQ_API_KEY not set; reports will carry a placeholder summary")
		}
		engine := ocrx.NewTesseractEngine(log,
			ocrx.WithLanguage(envutil.String("OCR_LANGUAGE", "eng")),
			ocrx.WithDPI(envutil.Int("OCR_DPI", 300)),
		)
		extractService := services.NewExtractService(log, engine)
		summaryService := services.NewSummaryService(log, groqClient)
		renderService := services.NewRenderService(log, store)

		registry := jobs.NewRegistry()
		if rErr := registry.Register(report_process.New(reportRepo, store, extractService, summaryService, renderService)); rErr != nil {
			log.Fatal("Could not register pipeline", "error", rErr)
		}
		jobs.NewWorker(gdb, log, jobRunRepo, registry).Start(ctx)
	}

	// Rate limiter: redis when available, per-process otherwise
	rlLimit := envutil.Int("RATE_LIMIT_REQUESTS", 60)
	rlWindow := envutil.Duration("RATE_LIMIT_WINDOW", time.Minute)
	var limiter middleware.Limiter
	rdb, rErr := redisclient.NewClient(log)
	if rErr != nil {
		log.Warn("Redis init failed, using in-memory rate limiter", "error", rErr)
	}
	if rdb != nil {
		limiter = middleware.NewRedisLimiter(rdb, rlLimit, rlWindow)
	} else {
		limiter = middleware.NewMemoryLimiter(rlLimit, rlWindow)
	}

	router := server.NewRouter(server.RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(),
		AuthHandler:    handlers.NewAuthHandler(authService),
		UploadHandler:  handlers.NewUploadHandler(reportService),
		ReportHandler:  handlers.NewReportHandler(reportService),
		AuthMiddleware: middleware.NewAuthMiddleware(log, authService),
		RateLimit:      middleware.RateLimit(limiter, log),
		UploadRoot:     store.Root(),
	})

	port := envutil.String("PORT", "8000")
	log.Info("Starting API server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
