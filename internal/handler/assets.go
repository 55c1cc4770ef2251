package handler

import (
	"net/http"

	"zedcmms/internal/dto"
	"zedcmms/internal/service"

	"github.com/gin-gonic/gin"
)

type AssetsHandler struct{ svc service.AssetService }

func NewAssetsHandler(svc service.AssetService) *AssetsHandler { return &AssetsHandler{svc: svc} }

// ── Production lines ─────────────────────────────────────────────────────────

func (h *AssetsHandler) CreateLine(c *gin.Context) {
	var req dto.CreateProductionLineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateProductionLine(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AssetsHandler) ListLines(c *gin.Context) {
	resp, err := h.svc.ListProductionLines(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssetsHandler) UpdateLine(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductionLineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateProductionLine(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteLine godoc
// @Summary Delete a production line without machines
// @Tags assets
// @Security BearerAuth
// @Param id path string true "Production line ID"
// @Success 204
// @Failure 400 {object} apierror.APIError
// @Router /v1/assets/production-lines/{id} [delete]
func (h *AssetsHandler) DeleteLine(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteProductionLine(c.Request.Context(), actorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Machines ─────────────────────────────────────────────────────────────────

// CreateMachine godoc
// @Summary Register a machine on a production line
// @Tags machines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateMachineRequest true "Machine"
// @Success 201 {object} dto.MachineResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/machines [post]
func (h *AssetsHandler) CreateMachine(c *gin.Context) {
	var req dto.CreateMachineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateMachine(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AssetsHandler) ListMachines(c *gin.Context) {
	var filter dto.MachineFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListMachines(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssetsHandler) GetMachine(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetMachine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMachine godoc
// @Summary Update a machine (optimistic locking on version)
// @Tags machines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Machine ID"
// @Param body body dto.UpdateMachineRequest true "Changes"
// @Success 200 {object} dto.MachineResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/machines/{id} [put]
func (h *AssetsHandler) UpdateMachine(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.UpdateMachineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateMachine(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssetsHandler) ChangeStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.MachineStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ChangeStatus(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssetsHandler) UpdateOperatingHours(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.OperatingHoursRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateOperatingHours(c.Request.Context(), actorID(c), id, req.Hours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssetsHandler) Scrap(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.ScrapMachineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ScrapMachine(c.Request.Context(), actorID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssetsHandler) History(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetMachineHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssetsHandler) UpcomingService(c *gin.Context) {
	var q struct {
		Days int `form:"days,default=30"`
	}
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.ListUpcomingService(c.Request.Context(), q.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
