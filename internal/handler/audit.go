package handler

import (
	"net/http"

	"zedcmms/internal/dto"
	"zedcmms/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct{ svc service.AuditService }

func NewAuditHandler(svc service.AuditService) *AuditHandler { return &AuditHandler{svc: svc} }

// List godoc
// @Summary Search the audit log
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param entity_type query string false "Entity type"
// @Param action_type query string false "Action type"
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Success 200 {object} dto.ListResponse[dto.AuditLogResponse]
// @Router /v1/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter dto.AuditFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
