package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sjwg/reporter-backend/internal/http/response"
	"github.com/sjwg/reporter-backend/internal/platform/apierr"
	"github.com/sjwg/reporter-backend/internal/requestdata"
	"github.com/sjwg/reporter-backend/internal/services"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GET /api/reports
func (h *ReportHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == 0 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}
	items, err := h.reportService.ListReports(c.Request.Context(), rd.UserID)
	if err != nil {
		status, code := apierr.StatusOf(err)
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, gin.H{"reports": items})
}

// GET /api/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == 0 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}
	reportID, err := parseReportID(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_report_id", err)
		return
	}
	detail, err := h.reportService.GetReport(c.Request.Context(), rd.UserID, reportID)
	if err != nil {
		status, code := apierr.StatusOf(err)
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, detail)
}

// DELETE /api/reports/:id
func (h *ReportHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == 0 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request identity"))
		return
	}
	reportID, err := parseReportID(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_report_id", err)
		return
	}
	if err := h.reportService.DeleteReport(c.Request.Context(), rd.UserID, reportID); err != nil {
		status, code := apierr.StatusOf(err)
		response.RespondError(c, status, code, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseReportID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid report id %q", raw)
	}
	return uint(id), nil
}
