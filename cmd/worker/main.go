package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sjwg/reporter-backend/internal/data/db"
	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/jobs"
	"github.com/sjwg/reporter-backend/internal/jobs/pipeline/report_process"
	"github.com/sjwg/reporter-backend/internal/platform/envutil"
	"github.com/sjwg/reporter-backend/internal/platform/groq"
	"github.com/sjwg/reporter-backend/internal/platform/localfiles"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
	"github.com/sjwg/reporter-backend/internal/platform/ocrx"
	"github.com/sjwg/reporter-backend/internal/services"
)

// Standalone worker process for deployments that split API and pipeline.
// Must share DATABASE_URL and UPLOAD_ROOT with the API.
func main() {
	_ = godotenv.Load()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	gdb := dbService.DB()

	reportRepo := repos.NewReportRepo(gdb, log)
	jobRunRepo := repos.NewJobRunRepo(gdb, log)

	store, err := localfiles.NewStore(envutil.String("UPLOAD_ROOT", "uploads"), log)
	if err != nil {
		log.Fatal("Could not init file store", "error", err)
	}

	groqClient, err := groq.NewClient(log)
	if err != nil {
		log.Fatal("Could not init completion client", "error", err)
	}
	if groqClient == nil {
		log.Warn("GROQ_API_KEY not set; reports will carry a placeholder summary")
	}
	engine := ocrx.NewTesseractEngine(log,
		ocrx.WithLanguage(envutil.String("OCR_LANGUAGE", "eng")),
		ocrx.WithDPI(envutil.Int("OCR_DPI", 300)),
	)

	registry := jobs.NewRegistry()
	pipeline := report_process.New(
		reportRepo,
		store,
		services.NewExtractService(log, engine),
		services.NewSummaryService(log, groqClient),
		services.NewRenderService(log, store),
	)
	if err := registry.Register(pipeline); err != nil {
		log.Fatal("Could not register pipeline", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs.NewWorker(gdb, log, jobRunRepo, registry).Start(ctx)
	log.Info("Worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Worker shutting down")
}
