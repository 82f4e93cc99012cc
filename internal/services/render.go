package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/platform/localfiles"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
	"github.com/sjwg/reporter-backend/internal/platform/pdfgen"
)

// Raw OCR text beyond this is cut from the rendered artifact to bound the
// PDF size; the full text still lands in the report row.
const renderRawTextLimit = 30000

// RenderService writes the report PDF artifact and returns its public URL.
type RenderService interface {
	Render(ctx context.Context, report *domain.Report, rawText, aiSummary string) (string, error)
}

type renderService struct {
	log   *logger.Logger
	store *localfiles.Store
}

func NewRenderService(baseLog *logger.Logger, store *localfiles.Store) RenderService {
	return &renderService{
		log:   baseLog.With("service", "RenderService"),
		store: store,
	}
}

func (s *renderService) Render(ctx context.Context, report *domain.Report, rawText, aiSummary string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(rawText) > renderRawTextLimit {
		if r := []rune(rawText); len(r) > renderRawTextLimit {
			rawText = string(r[:renderRawTextLimit])
		}
	}

	diskPath, publicURL := s.store.ReportPaths(report.ID)
	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	err := pdfgen.Write(diskPath, pdfgen.Document{
		Title:       report.Title,
		GeneratedAt: time.Now(),
		AISummary:   aiSummary,
		RawText:     rawText,
	})
	if err != nil {
		return "", err
	}

	s.log.Debug("rendered report artifact", "reportID", report.ID, "path", diskPath)
	return publicURL, nil
}
