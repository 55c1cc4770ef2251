package handler

import (
	"net/http"
	"time"

	"zedcmms/internal/apierror"
	"zedcmms/internal/dto"
	"zedcmms/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	svc          service.InventoryService
	reservations service.ReservationService
}

func NewInventoryHandler(svc service.InventoryService, reservations service.ReservationService) *InventoryHandler {
	return &InventoryHandler{svc: svc, reservations: reservations}
}

// ── Suppliers ────────────────────────────────────────────────────────────────

func (h *InventoryHandler) CreateSupplier(c *gin.Context) {
	var req dto.CreateSupplierRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateSupplier(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventoryHandler) ListSuppliers(c *gin.Context) {
	resp, err := h.svc.ListSuppliers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Parts ────────────────────────────────────────────────────────────────────

// CreatePart godoc
// @Summary Create a spare part, optionally with opening stock
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreatePartRequest true "Part"
// @Success 201 {object} dto.PartResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/inventory/parts [post]
func (h *InventoryHandler) CreatePart(c *gin.Context) {
	var req dto.CreatePartRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreatePart(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventoryHandler) ListParts(c *gin.Context) {
	var filter dto.PartFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListParts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) GetPart(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetPart(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) GetPartBySKU(c *gin.Context) {
	resp, err := h.svc.GetPartBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) UpdatePart(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.UpdatePartRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdatePart(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) DeletePart(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.DeletePart(c.Request.Context(), actorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	resp, err := h.svc.ListLowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Level(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetInventoryLevel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Batches(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var q struct {
		IncludeEmpty bool `form:"include_empty"`
	}
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.ListStockBatches(c.Request.Context(), id, q.IncludeEmpty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receive godoc
// @Summary Receive stock into a new FIFO batch
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Part ID"
// @Param body body dto.ReceiveStockRequest true "Receipt"
// @Success 201 {object} dto.StockTransactionResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/inventory/parts/{id}/receive [post]
func (h *InventoryHandler) Receive(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.ReceiveStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ReceiveStock(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Adjust godoc
// @Summary Manually adjust stock; negative quantities consume FIFO batches
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Part ID"
// @Param body body dto.AdjustStockRequest true "Adjustment"
// @Success 201 {object} dto.StockTransactionResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/inventory/parts/{id}/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventoryHandler) Reconciliation(c *gin.Context) {
	resp, err := h.svc.ValidateInventoryLevels(c.Request.Context(), c.Query("part_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Reconcile(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.FixInventoryLevel(c.Request.Context(), actorID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Transactions(c *gin.Context) {
	var filter dto.TransactionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListStockTransactions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Reservations ─────────────────────────────────────────────────────────────

// Reserve godoc
// @Summary Reserve stock for a worksheet or a planned job
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ReserveStockRequest true "Reservation"
// @Success 201 {object} dto.ReservationResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/inventory/reservations [post]
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req dto.ReserveStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	partID, _ := uuid.Parse(req.PartID)
	in := service.ReserveRequest{
		PartID:   partID,
		Quantity: req.Quantity,
		UserID:   actorID(c),
		TTL:      time.Duration(req.TTLHours) * time.Hour,
		Notes:    req.Notes,
	}
	if req.WorksheetID != nil {
		wsID, err := uuid.Parse(*req.WorksheetID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{"worksheet_id": "uuid"}))
			return
		}
		in.WorksheetID = &wsID
	}
	resp, err := h.reservations.ReserveStock(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventoryHandler) ListReservations(c *gin.Context) {
	var filter dto.ReservationFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.reservations.ListReservations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) ReleaseReservation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.reservations.ReleaseReservation(c.Request.Context(), actorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InventoryHandler) ConsumeReservation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.reservations.ConsumeReservation(c.Request.Context(), actorID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) CleanupReservations(c *gin.Context) {
	n, err := h.reservations.CleanupExpiredReservations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}
