package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjwg/reporter-backend/internal/http/response"
	"github.com/sjwg/reporter-backend/internal/platform/apierr"
	"github.com/sjwg/reporter-backend/internal/requestdata"
	"github.com/sjwg/reporter-backend/internal/services"
)

type UploadHandler struct {
	reportService services.ReportService
}

func NewUploadHandler(reportService services.ReportService) *UploadHandler {
	return &UploadHandler{reportService: reportService}
}

// POST /api/upload
//
// Accepts a multipart document, creates the report row and enqueues the
// processing job, then answers 202 immediately. Clients poll the report
// status afterwards.
func (h *UploadHandler) Upload(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == 0 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field 'file' is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	report, err := h.reportService.SubmitReport(c.Request.Context(), rd.UserID, fileHeader.Filename, file)
	if err != nil {
		status, code := apierr.StatusOf(err)
		response.RespondError(c, status, code, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"report_id":    report.ID,
		"status":       report.Status,
		"message":      "Document received. Processing has started.",
		"check_status": fmt.Sprintf("/api/reports/%d", report.ID),
	})
}
