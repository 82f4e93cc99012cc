package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/platform/envutil"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// Worker polls the job_run table and dispatches claimed runs to registered
// handlers. Each job is claimed at most once; a handler error or panic fails
// the run instead of requeueing it.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *Registry
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *Registry) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 2)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("starting job worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker loop stopped", "workerID", workerID)
			return
		case <-ticker.C:
			w.RunOnce(ctx, workerID)
		}
	}
}

// RunOnce claims and executes at most one queued job. Exposed so a caller
// can drain the queue synchronously.
func (w *Worker) RunOnce(ctx context.Context, workerID int) bool {
	job, err := w.repo.ClaimNextQueued(ctx, nil)
	if err != nil {
		w.log.Warn("claim failed", "workerID", workerID, "error", err)
		return false
	}
	if job == nil {
		return false
	}

	jc := NewContext(ctx, w.db, w.log, job, w.repo)
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("no handler registered", "workerID", workerID, "jobType", job.JobType, "jobID", job.ID)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return true
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("job handler panic",
					"workerID", workerID,
					"jobID", job.ID,
					"jobType", job.JobType,
					"panic", r,
				)
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()

		if runErr := h.Run(jc); runErr != nil {
			// Handlers normally call jc.Fail themselves; this is a safety net.
			if job.Status == domain.JobStatusRunning {
				jc.Fail("run", runErr)
			}
		}
	}()
	return true
}
