package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/data/repos/testutil"
	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/http/handlers"
	"github.com/sjwg/reporter-backend/internal/http/middleware"
	"github.com/sjwg/reporter-backend/internal/jobs"
	"github.com/sjwg/reporter-backend/internal/jobs/pipeline/report_process"
	"github.com/sjwg/reporter-backend/internal/platform/localfiles"
	"github.com/sjwg/reporter-backend/internal/services"
)

type fixedExtract struct{ text string }

func (f fixedExtract) Extract(ctx context.Context, storedPath string) (string, error) {
	return f.text, nil
}

type apiHarness struct {
	router *gin.Engine
	db     *gorm.DB
	worker *jobs.Worker
	store  *localfiles.Store
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := localfiles.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	userRepo := repos.NewUserRepo(db, log)
	reportRepo := repos.NewReportRepo(db, log)
	jobRunRepo := repos.NewJobRunRepo(db, log)

	authService := services.NewAuthService(db, log, userRepo, "e2e-secret", 15*time.Minute, 24*time.Hour)
	reportService := services.NewReportService(db, log, reportRepo, jobRunRepo, store)

	registry := jobs.NewRegistry()
	pipeline := report_process.New(
		reportRepo,
		store,
		fixedExtract{text: "Recognized document text."},
		services.NewSummaryService(log, nil),
		services.NewRenderService(log, store),
	)
	require.NoError(t, registry.Register(pipeline))

	router := NewRouter(RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(),
		AuthHandler:    handlers.NewAuthHandler(authService),
		UploadHandler:  handlers.NewUploadHandler(reportService),
		ReportHandler:  handlers.NewReportHandler(reportService),
		AuthMiddleware: middleware.NewAuthMiddleware(log, authService),
		RateLimit:      middleware.RateLimit(middleware.NewMemoryLimiter(1000, time.Minute), log),
		UploadRoot:     store.Root(),
	})

	return &apiHarness{
		router: router,
		db:     db,
		worker: jobs.NewWorker(db, log, jobRunRepo, registry),
		store:  store,
	}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *apiHarness) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	return h.do(t, method, path, token, &buf, "application/json")
}

func (h *apiHarness) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	w := h.doJSON(t, "POST", "/api/auth/register", "",
		map[string]string{"email": email, "password": "a fine password!"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.doJSON(t, "POST", "/api/auth/login", "",
		map[string]string{"email": email, "password": "a fine password!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func (h *apiHarness) upload(t *testing.T, token, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return h.do(t, "POST", "/api/upload", token, &buf, mw.FormDataContentType())
}

func TestUploadToCompletedReport(t *testing.T) {
	h := newAPIHarness(t)
	token := h.registerAndLogin(t, "flow@example.com")

	w := h.upload(t, token, "scan.pdf", "fake pdf bytes")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted struct {
		ReportID    uint   `json:"report_id"`
		Status      string `json:"status"`
		CheckStatus string `json:"check_status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.Equal(t, domain.ReportStatusProcessing, accepted.Status)
	require.Equal(t, fmt.Sprintf("/api/reports/%d", accepted.ReportID), accepted.CheckStatus)

	// Poll while still queued.
	w = h.do(t, "GET", accepted.CheckStatus, token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail services.ReportDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Equal(t, domain.ReportStatusProcessing, detail.Status)
	require.Empty(t, detail.DownloadPDF)

	// Drain the queue synchronously.
	for h.worker.RunOnce(context.Background(), 1) {
	}

	w = h.do(t, "GET", accepted.CheckStatus, token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Equal(t, domain.ReportStatusCompleted, detail.Status)
	require.Equal(t, "Recognized document text.", detail.RawText)
	require.Equal(t, "AI summary unavailable: GROQ_API_KEY not configured.", detail.AISummary)
	require.NotEmpty(t, detail.DownloadPDF)

	// The artifact is a real PDF on disk, reachable under /uploads.
	diskPath, err := h.store.ResolvePublic(detail.DownloadPDF)
	require.NoError(t, err)
	data, err := os.ReadFile(diskPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	h := newAPIHarness(t)
	token := h.registerAndLogin(t, "badfile@example.com")

	w := h.upload(t, token, "malware.exe", "nope")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, "GET", "/api/reports", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, "GET", "/api/reports", "not-a-token", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportsAreOwnerScoped(t *testing.T) {
	h := newAPIHarness(t)
	alice := h.registerAndLogin(t, "alice-owner@example.com")
	mallory := h.registerAndLogin(t, "mallory@example.com")

	w := h.upload(t, alice, "scan.png", "fake png bytes")
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted struct {
		ReportID uint `json:"report_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

	path := fmt.Sprintf("/api/reports/%d", accepted.ReportID)
	w = h.do(t, "GET", path, mallory, nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, "DELETE", path, mallory, nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// The owner still sees it, and can delete it.
	w = h.do(t, "GET", path, alice, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, "DELETE", path, alice, nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, "GET", path, alice, nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, "GET", "/api/reports", mallory, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Reports []services.ReportListItem `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Empty(t, listing.Reports)
}

func TestHealthEndpoint(t *testing.T) {
	h := newAPIHarness(t)
	w := h.do(t, "GET", "/health", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ok")
}
