package services

import (
	"context"
	"fmt"

	"github.com/sjwg/reporter-backend/internal/platform/groq"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
)

const (
	// Input beyond this is cut before prompting; keeps the request inside
	// the model context window for large scans.
	summaryInputLimit = 15000

	summaryUnconfigured = "AI summary unavailable: GROQ_API_KEY not configured."
)

// SummaryService produces the AI summary for extracted text. It never fails:
// a missing or erroring completion backend degrades to a placeholder string
// so the pipeline can still complete the report.
type SummaryService interface {
	Summarize(ctx context.Context, text string) string
}

type summaryService struct {
	log    *logger.Logger
	client groq.Client
}

func NewSummaryService(baseLog *logger.Logger, client groq.Client) SummaryService {
	return &summaryService{
		log:    baseLog.With("service", "SummaryService"),
		client: client,
	}
}

func (s *summaryService) Summarize(ctx context.Context, text string) string {
	if s.client == nil {
		s.log.Warn("summarization skipped, completion client not configured")
		return summaryUnconfigured
	}

	if len(text) > summaryInputLimit {
		// Cut by characters, not bytes; OCR output is not ASCII-only.
		if r := []rune(text); len(r) > summaryInputLimit {
			text = string(r[:summaryInputLimit])
		}
	}

	prompt := "You are a document analysis assistant. Summarize the following " +
		"document text extracted via OCR into a structured report with these " +
		"sections: Patient/Subject Info, History, Examination, Diagnosis/Findings, " +
		"Plan. Be concise and note if the text appears incomplete or garbled.\n\n" +
		"Document text:\n" + text

	summary, err := s.client.Complete(ctx, prompt)
	if err != nil {
		s.log.Error("summarization failed", "error", err)
		return fmt.Sprintf("AI summary failed: %v", err)
	}
	return summary
}
