package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

type JobRunRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, job *domain.JobRun) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error)
	// ClaimNextQueued atomically moves the oldest queued job to running and
	// returns it, or nil when the queue is empty. A job is claimed at most
	// once; there is no retry of failed or stale-running jobs.
	ClaimNextQueued(ctx context.Context, tx *gorm.DB) (*domain.JobRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{db: db, log: baseLog.With("repo", "JobRunRepo")}
}

func (r *jobRunRepo) Enqueue(ctx context.Context, tx *gorm.DB, job *domain.JobRun) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}
	return transaction.WithContext(ctx).Create(job).Error
}

func (r *jobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job domain.JobRun
	err := transaction.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRunRepo) ClaimNextQueued(ctx context.Context, tx *gorm.DB) (*domain.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	var claimed *domain.JobRun
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job domain.JobRun
		q := txx.Where("status = ?", domain.JobStatusQueued).Order("created_at ASC")
		if txx.Dialector.Name() == "postgres" {
			// sqlite has no row locks; its writes are serialized anyway.
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		res := txx.Model(&domain.JobRun{}).
			Where("id = ? AND status = ?", job.ID, domain.JobStatusQueued).
			Updates(map[string]interface{}{
				"status":     domain.JobStatusRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to another worker.
			return nil
		}
		job.Status = domain.JobStatusRunning
		job.Attempts++
		job.LockedAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&domain.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}
