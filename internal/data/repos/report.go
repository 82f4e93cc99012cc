package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// ReportRepo is the owner-scoped record store for reports. Every read and
// write carries the owner id so a background worker can never touch another
// tenant's row. Terminal transitions are conditional updates guarded on
// status = processing: zero rows affected means the report was deleted or
// already terminal, and the caller must stop.
type ReportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, report *domain.Report) error
	GetByIDForOwner(ctx context.Context, tx *gorm.DB, id, ownerID uint) (*domain.Report, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uint) ([]*domain.Report, error)
	CompleteProcessing(ctx context.Context, tx *gorm.DB, id, ownerID uint, rawText, aiSummary, pdfReport string) (bool, error)
	FailProcessing(ctx context.Context, tx *gorm.DB, id, ownerID uint, diagnostic string) (bool, error)
	DeleteByIDForOwner(ctx context.Context, tx *gorm.DB, id, ownerID uint) (bool, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "ReportRepo")}
}

func (r *reportRepo) Create(ctx context.Context, tx *gorm.DB, report *domain.Report) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(report).Error
}

func (r *reportRepo) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id, ownerID uint) (*domain.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var report domain.Report
	err := transaction.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uint) ([]*domain.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var reports []*domain.Report
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// CompleteProcessing applies the terminal success transition as one atomic
// conditional UPDATE. A report deleted or failed mid-run is left untouched.
func (r *reportRepo) CompleteProcessing(ctx context.Context, tx *gorm.DB, id, ownerID uint, rawText, aiSummary, pdfReport string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&domain.Report{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, domain.ReportStatusProcessing).
		Updates(map[string]interface{}{
			"raw_text":   rawText,
			"ai_summary": aiSummary,
			"pdf_report": pdfReport,
			"status":     domain.ReportStatusCompleted,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FailProcessing applies the terminal failure transition with the same
// status = processing guard, storing the diagnostic in ai_summary.
func (r *reportRepo) FailProcessing(ctx context.Context, tx *gorm.DB, id, ownerID uint, diagnostic string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&domain.Report{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, domain.ReportStatusProcessing).
		Updates(map[string]interface{}{
			"ai_summary": diagnostic,
			"status":     domain.ReportStatusFailed,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reportRepo) DeleteByIDForOwner(ctx context.Context, tx *gorm.DB, id, ownerID uint) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.Report{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
