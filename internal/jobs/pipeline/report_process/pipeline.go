package report_process

import (
	"fmt"

	"github.com/sjwg/reporter-backend/internal/jobs"
)

// A failure diagnostic stored on the report is cut to this length.
const diagnosticLimit = 1000

func (p *Pipeline) Run(jc *jobs.Context) error {
	reportID, okID := jc.PayloadUint("report_id")
	ownerID, okOwner := jc.PayloadUint("owner_id")
	storedPath, _ := jc.PayloadString("stored_file_path")
	if !okID || !okOwner {
		jc.Fail("payload", fmt.Errorf("payload missing report_id or owner_id"))
		return nil
	}

	// The upload is a temp input; it goes away no matter how the run ends.
	defer func() {
		if storedPath == "" {
			return
		}
		if err := p.store.Remove(storedPath); err != nil {
			jc.Log.Warn("failed to remove stored upload", "path", storedPath, "error", err)
		}
	}()

	report, lErr := p.reportRepo.GetByIDForOwner(jc.Ctx, nil, reportID, ownerID)
	if lErr != nil {
		jc.Fail("load", fmt.Errorf("load report: %w", lErr))
		return nil
	}
	if report == nil {
		// Deleted between enqueue and claim; nothing to do.
		jc.Succeed("skip", map[string]any{"skipped": "report not found"})
		return nil
	}
	if report.Terminal() {
		// A previous run already finished this report; re-running must not
		// disturb its terminal state.
		jc.Succeed("skip", map[string]any{"skipped": "report already " + report.Status})
		return nil
	}

	jc.Progress("extract")
	rawText, eErr := p.extract.Extract(jc.Ctx, storedPath)
	if eErr != nil {
		p.failReport(jc, reportID, ownerID, "extract", eErr)
		return nil
	}

	jc.Progress("summarize")
	aiSummary := p.summary.Summarize(jc.Ctx, rawText)

	jc.Progress("render")
	publicURL, rErr := p.render.Render(jc.Ctx, report, rawText, aiSummary)
	if rErr != nil {
		p.failReport(jc, reportID, ownerID, "render", rErr)
		return nil
	}

	jc.Progress("finalize")
	completed, cErr := p.reportRepo.CompleteProcessing(jc.Ctx, nil, reportID, ownerID, rawText, aiSummary, publicURL)
	if cErr != nil {
		p.removeArtifact(jc, reportID)
		p.failReport(jc, reportID, ownerID, "finalize", fmt.Errorf("finalize report: %w", cErr))
		return nil
	}
	if !completed {
		// The report reached a terminal state (or was deleted) while this
		// run was working. Drop the artifact and bow out.
		p.removeArtifact(jc, reportID)
		jc.Succeed("skip", map[string]any{"skipped": "report no longer processing"})
		return nil
	}

	jc.Succeed("done", map[string]any{
		"report_id":  reportID,
		"pdf_report": publicURL,
	})
	return nil
}

// failReport records the failure diagnostic on the report (only if it is
// still processing) and fails the job run.
func (p *Pipeline) failReport(jc *jobs.Context, reportID, ownerID uint, stage string, cause error) {
	diagnostic := "Processing failed: " + cause.Error()
	if len(diagnostic) > diagnosticLimit {
		if r := []rune(diagnostic); len(r) > diagnosticLimit {
			diagnostic = string(r[:diagnosticLimit])
		}
	}
	if _, fErr := p.reportRepo.FailProcessing(jc.Ctx, nil, reportID, ownerID, diagnostic); fErr != nil {
		jc.Log.Error("failed to mark report failed", "reportID", reportID, "error", fErr)
	}
	jc.Fail(stage, cause)
}

// removeArtifact best-effort deletes the rendered PDF for a run whose
// result must not stand.
func (p *Pipeline) removeArtifact(jc *jobs.Context, reportID uint) {
	diskPath, _ := p.store.ReportPaths(reportID)
	if rmErr := p.store.Remove(diskPath); rmErr != nil {
		jc.Log.Warn("failed to remove report artifact", "path", diskPath, "error", rmErr)
	}
}
