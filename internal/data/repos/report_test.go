package repos_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/data/repos/testutil"
	"github.com/sjwg/reporter-backend/internal/domain"
)

func TestReportRepoOwnerScoping(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewReportRepo(db, log)

	alice := testutil.SeedUser(t, ctx, db, "alice@example.com")
	bob := testutil.SeedUser(t, ctx, db, "bob@example.com")
	report := testutil.SeedReport(t, ctx, db, alice.ID, domain.ReportStatusProcessing)

	got, err := repo.GetByIDForOwner(ctx, nil, report.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "scan.pdf", got.Title)

	// Invisible to another owner.
	got, err = repo.GetByIDForOwner(ctx, nil, report.ID, bob.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	list, err := repo.ListByOwner(ctx, nil, bob.ID)
	require.NoError(t, err)
	require.Empty(t, list)

	// Deletion by another owner must not touch the row.
	deleted, err := repo.DeleteByIDForOwner(ctx, nil, report.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = repo.DeleteByIDForOwner(ctx, nil, report.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestReportRepoListNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewReportRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	first := testutil.SeedReport(t, ctx, db, owner.ID, domain.ReportStatusCompleted)
	second := testutil.SeedReport(t, ctx, db, owner.ID, domain.ReportStatusProcessing)
	// Force a strictly later created_at for the second row; sqlite timestamps
	// can otherwise collide within one test.
	require.NoError(t, db.Model(second).Update("created_at", first.CreatedAt.Add(1_000_000_000)).Error)

	list, err := repo.ListByOwner(ctx, nil, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestCompleteProcessingIsConditional(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewReportRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	report := testutil.SeedReport(t, ctx, db, owner.ID, domain.ReportStatusProcessing)

	ok, err := repo.CompleteProcessing(ctx, nil, report.ID, owner.ID, "raw", "summary", "/uploads/reports/report_1.pdf")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByIDForOwner(ctx, nil, report.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusCompleted, got.Status)
	require.Equal(t, "/uploads/reports/report_1.pdf", got.PDFReport)

	// Terminal rows are never rewritten: the guard rejects a second run.
	ok, err = repo.CompleteProcessing(ctx, nil, report.ID, owner.ID, "other", "other", "/uploads/reports/other.pdf")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.FailProcessing(ctx, nil, report.ID, owner.ID, "boom")
	require.NoError(t, err)
	require.False(t, ok)

	got, err = repo.GetByIDForOwner(ctx, nil, report.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusCompleted, got.Status)
	require.Equal(t, "/uploads/reports/report_1.pdf", got.PDFReport)
	require.Equal(t, "summary", got.AISummary)
}

func TestFailProcessingStoresDiagnostic(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewReportRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	report := testutil.SeedReport(t, ctx, db, owner.ID, domain.ReportStatusProcessing)

	ok, err := repo.FailProcessing(ctx, nil, report.ID, owner.ID, "Processing failed: ocr exploded")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.GetByIDForOwner(ctx, nil, report.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportStatusFailed, got.Status)
	require.Equal(t, "Processing failed: ocr exploded", got.AISummary)
	require.Empty(t, got.PDFReport)
}

func TestJobRunClaimNextQueued(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := repos.NewJobRunRepo(db, testutil.Logger(t))

	payload, err := json.Marshal(map[string]any{
		"report_id":        1,
		"stored_file_path": "/tmp/abc_scan.pdf",
		"owner_id":         1,
	})
	require.NoError(t, err)

	job := &domain.JobRun{OwnerID: 1, JobType: "report_process", Payload: payload}
	require.NoError(t, repo.Enqueue(ctx, nil, job))

	claimed, err := repo.ClaimNextQueued(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, job.ID, claimed.ID)
	require.Equal(t, domain.JobStatusRunning, claimed.Status)
	require.Equal(t, 1, claimed.Attempts)

	// Running jobs are never re-claimed: a single attempt per job.
	again, err := repo.ClaimNextQueued(ctx, nil)
	require.NoError(t, err)
	require.Nil(t, again)

	require.NoError(t, repo.UpdateFields(ctx, nil, claimed.ID, map[string]interface{}{
		"status": domain.JobStatusFailed,
		"error":  "boom",
	}))
	again, err = repo.ClaimNextQueued(ctx, nil)
	require.NoError(t, err)
	require.Nil(t, again)
}
