package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/jobs"
	"github.com/sjwg/reporter-backend/internal/platform/apierr"
	"github.com/sjwg/reporter-backend/internal/platform/localfiles"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

// Summary text shown in list views is cut to this many characters.
const previewLength = 500

type ReportListItem struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Preview   string    `json:"preview"`
	PDFReport string    `json:"pdf_report,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReportDetail struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	RawText     string    `json:"raw_text"`
	AISummary   string    `json:"ai_summary"`
	PDFReport   string    `json:"pdf_report,omitempty"`
	DownloadPDF string    `json:"download_pdf,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReportService is the API-side surface for reports: submission enqueues the
// processing job in the same transaction that creates the row, reads are
// always owner-scoped.
type ReportService interface {
	SubmitReport(ctx context.Context, ownerID uint, filename string, file io.Reader) (*domain.Report, error)
	ListReports(ctx context.Context, ownerID uint) ([]ReportListItem, error)
	GetReport(ctx context.Context, ownerID, reportID uint) (*ReportDetail, error)
	DeleteReport(ctx context.Context, ownerID, reportID uint) error
}

type reportService struct {
	db         *gorm.DB
	log        *logger.Logger
	reportRepo repos.ReportRepo
	jobRunRepo repos.JobRunRepo
	store      *localfiles.Store
}

func NewReportService(
	db *gorm.DB,
	log *logger.Logger,
	reportRepo repos.ReportRepo,
	jobRunRepo repos.JobRunRepo,
	store *localfiles.Store,
) ReportService {
	return &reportService{
		db:         db,
		log:        log.With("service", "ReportService"),
		reportRepo: reportRepo,
		jobRunRepo: jobRunRepo,
		store:      store,
	}
}

func (rs *reportService) SubmitReport(ctx context.Context, ownerID uint, filename string, file io.Reader) (*domain.Report, error) {
	if !localfiles.AllowedUpload(filename) {
		return nil, apierr.BadRequest("UNSUPPORTED_FILE_TYPE",
			fmt.Errorf("unsupported file type; allowed: .pdf, .png, .jpg, .jpeg"))
	}

	storedPath, sErr := rs.store.SaveUpload(filename, file)
	if sErr != nil {
		return nil, fmt.Errorf("store upload: %w", sErr)
	}

	report := &domain.Report{
		OwnerID: ownerID,
		Title:   filepath.Base(filename),
		Status:  domain.ReportStatusProcessing,
	}
	txErr := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rs.reportRepo.Create(ctx, tx, report); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		payload, mErr := jobs.MarshalReportProcessPayload(report.ID, ownerID, storedPath)
		if mErr != nil {
			return fmt.Errorf("marshal payload: %w", mErr)
		}
		run := &domain.JobRun{
			OwnerID: ownerID,
			JobType: jobs.TypeReportProcess,
			Payload: datatypes.JSON(payload),
		}
		if err := rs.jobRunRepo.Enqueue(ctx, tx, run); err != nil {
			return fmt.Errorf("enqueue job: %w", err)
		}
		return nil
	})
	if txErr != nil {
		// The row never landed, so the stored upload is an orphan.
		if rmErr := rs.store.Remove(storedPath); rmErr != nil {
			rs.log.Warn("failed to remove orphaned upload", "path", storedPath, "error", rmErr)
		}
		return nil, txErr
	}

	rs.log.Info("report submitted", "reportID", report.ID, "ownerID", ownerID)
	return report, nil
}

func (rs *reportService) ListReports(ctx context.Context, ownerID uint) ([]ReportListItem, error) {
	reports, err := rs.reportRepo.ListByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	items := make([]ReportListItem, 0, len(reports))
	for _, r := range reports {
		items = append(items, ReportListItem{
			ID:        r.ID,
			Title:     r.Title,
			Status:    r.Status,
			Preview:   truncate(r.AISummary, previewLength),
			PDFReport: r.PDFReport,
			CreatedAt: r.CreatedAt,
		})
	}
	return items, nil
}

func (rs *reportService) GetReport(ctx context.Context, ownerID, reportID uint) (*ReportDetail, error) {
	report, err := rs.reportRepo.GetByIDForOwner(ctx, nil, reportID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return nil, apierr.NotFound("REPORT_NOT_FOUND", fmt.Errorf("report %d not found", reportID))
	}
	detail := &ReportDetail{
		ID:        report.ID,
		Title:     report.Title,
		Status:    report.Status,
		RawText:   report.RawText,
		AISummary: report.AISummary,
		PDFReport: report.PDFReport,
		CreatedAt: report.CreatedAt,
		UpdatedAt: report.UpdatedAt,
	}
	if report.Status == domain.ReportStatusCompleted && report.PDFReport != "" {
		detail.DownloadPDF = report.PDFReport
	}
	return detail, nil
}

func (rs *reportService) DeleteReport(ctx context.Context, ownerID, reportID uint) error {
	report, err := rs.reportRepo.GetByIDForOwner(ctx, nil, reportID, ownerID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return apierr.NotFound("REPORT_NOT_FOUND", fmt.Errorf("report %d not found", reportID))
	}

	deleted, dErr := rs.reportRepo.DeleteByIDForOwner(ctx, nil, reportID, ownerID)
	if dErr != nil {
		return fmt.Errorf("delete report: %w", dErr)
	}
	if !deleted {
		return apierr.NotFound("REPORT_NOT_FOUND", fmt.Errorf("report %d not found", reportID))
	}

	// Artifact cleanup is best effort; the row is already gone.
	if report.PDFReport != "" {
		if diskPath, rErr := rs.store.ResolvePublic(report.PDFReport); rErr == nil {
			if rmErr := rs.store.Remove(diskPath); rmErr != nil {
				rs.log.Warn("failed to remove report artifact", "reportID", reportID, "error", rmErr)
			}
		}
	}
	rs.log.Info("report deleted", "reportID", reportID, "ownerID", ownerID)
	return nil
}

// truncate cuts s to at most n characters, never splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
