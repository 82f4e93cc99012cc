package report_process

import (
	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/jobs"
	"github.com/sjwg/reporter-backend/internal/platform/localfiles"
	"github.com/sjwg/reporter-backend/internal/services"
)

// Pipeline turns a stored upload into a finished report: OCR extraction,
// AI summarization, PDF rendering, then a single conditional finalize.
type Pipeline struct {
	reportRepo repos.ReportRepo
	store      *localfiles.Store
	extract    services.ExtractService
	summary    services.SummaryService
	render     services.RenderService
}

func New(
	reportRepo repos.ReportRepo,
	store *localfiles.Store,
	extract services.ExtractService,
	summary services.SummaryService,
	render services.RenderService,
) *Pipeline {
	return &Pipeline{
		reportRepo: reportRepo,
		store:      store,
		extract:    extract,
		summary:    summary,
		render:     render,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeReportProcess }
