package handler

import (
	"net/http"

	"zedcmms/internal/dto"
	"zedcmms/internal/service"

	"github.com/gin-gonic/gin"
)

type WorksheetsHandler struct{ svc service.WorksheetService }

func NewWorksheetsHandler(svc service.WorksheetService) *WorksheetsHandler {
	return &WorksheetsHandler{svc: svc}
}

// Create godoc
// @Summary Open a repair worksheet for a machine
// @Tags worksheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateWorksheetRequest true "Worksheet"
// @Success 201 {object} dto.WorksheetResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/worksheets [post]
func (h *WorksheetsHandler) Create(c *gin.Context) {
	var req dto.CreateWorksheetRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateWorksheet(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List returns worksheets; ?active=true limits to Open and Waiting for Parts.
func (h *WorksheetsHandler) List(c *gin.Context) {
	var filter dto.WorksheetFilter
	if !bindQuery(c, &filter) {
		return
	}
	var q struct {
		Active bool `form:"active"`
	}
	if !bindQuery(c, &q) {
		return
	}
	var (
		resp *dto.ListResponse[dto.WorksheetResponse]
		err  error
	)
	if q.Active {
		resp, err = h.svc.ListActiveWorksheets(c.Request.Context(), filter)
	} else {
		resp, err = h.svc.ListWorksheets(c.Request.Context(), filter)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WorksheetsHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetWorksheet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WorksheetsHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.UpdateWorksheetRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateDetails(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus godoc
// @Summary Move a worksheet through Open, Waiting for Parts and Closed
// @Tags worksheets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Worksheet ID"
// @Param body body dto.WorksheetStatusRequest true "Target status"
// @Success 200 {object} dto.WorksheetResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/worksheets/{id}/status [patch]
func (h *WorksheetsHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.WorksheetStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WorksheetsHandler) AddPart(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.AddWorksheetPartRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddPart(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *WorksheetsHandler) ListParts(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListParts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PDF godoc
// @Summary Download the worksheet as PDF
// @Tags worksheets
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Worksheet ID"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /v1/worksheets/{id}/pdf [get]
func (h *WorksheetsHandler) PDF(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	f, err := h.svc.GenerateWorksheetPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, f.Name, f.ContentType, f.Data)
}
