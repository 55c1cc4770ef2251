package handler

import (
	"net/http"

	"zedcmms/internal/dto"
	"zedcmms/internal/service"

	"github.com/gin-gonic/gin"
)

type PMHandler struct{ svc service.PMService }

func NewPMHandler(svc service.PMService) *PMHandler { return &PMHandler{svc: svc} }

// Create godoc
// @Summary Schedule a preventive maintenance task
// @Tags pm
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreatePMTaskRequest true "Task"
// @Success 201 {object} dto.PMTaskResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/pm/tasks [post]
func (h *PMHandler) Create(c *gin.Context) {
	var req dto.CreatePMTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreatePMTask(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PMHandler) List(c *gin.Context) {
	var filter dto.PMTaskFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListPMTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PMHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetPMTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PMHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.UpdatePMTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdatePMTask(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PMHandler) Deactivate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.DeactivatePMTask(c.Request.Context(), actorID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PMHandler) Due(c *gin.Context) {
	var filter dto.DueTasksFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListDueTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordExecution godoc
// @Summary Record a PM execution and advance the schedule
// @Tags pm
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "PM task ID"
// @Param body body dto.RecordExecutionRequest true "Execution"
// @Success 201 {object} dto.PMHistoryResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/pm/tasks/{id}/executions [post]
func (h *PMHandler) RecordExecution(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.RecordExecutionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordExecution(c.Request.Context(), service.ExecutionRequest{
		TaskID:           id,
		CompletionStatus: req.CompletionStatus,
		ExecutedAt:       req.ExecutedAt,
		UserID:           actorID(c),
		Notes:            req.Notes,
		DurationMinutes:  req.DurationMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PMHandler) Complete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.CompletePMTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CompletePMTask(c.Request.Context(), actorID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PMHandler) History(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetPMHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatuses runs the status sweep on demand.
func (h *PMHandler) UpdateStatuses(c *gin.Context) {
	resp, err := h.svc.UpdatePMTaskStatuses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
