package handler

import (
	"net/http"

	"zedcmms/internal/dto"
	"zedcmms/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportsHandler struct{ svc service.ReportService }

func NewReportsHandler(svc service.ReportService) *ReportsHandler { return &ReportsHandler{svc: svc} }

// Dashboard godoc
// @Summary Headline counts for the dashboard
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /v1/reports/dashboard [get]
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MaintenanceCosts godoc
// @Summary Parts cost and downtime of closed worksheets, per machine
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Success 200 {object} dto.MaintenanceCostReport
// @Failure 400 {object} apierror.APIError
// @Router /v1/reports/maintenance-costs [get]
func (h *ReportsHandler) MaintenanceCosts(c *gin.Context) {
	var filter dto.CostReportFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.MaintenanceCosts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) InventoryValuation(c *gin.Context) {
	resp, err := h.svc.InventoryValuation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportsHandler) InventoryExcel(c *gin.Context) {
	f, err := h.svc.InventoryExcel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, f.Name, f.ContentType, f.Data)
}

func (h *ReportsHandler) PMScheduleExcel(c *gin.Context) {
	f, err := h.svc.PMScheduleExcel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, f.Name, f.ContentType, f.Data)
}
