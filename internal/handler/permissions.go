package handler

import (
	"net/http"
	"sort"

	"zedcmms/internal/dto"
	"zedcmms/internal/middleware"
	"zedcmms/internal/service"

	"github.com/gin-gonic/gin"
)

type PermissionsHandler struct{ svc service.PermissionService }

func NewPermissionsHandler(svc service.PermissionService) *PermissionsHandler {
	return &PermissionsHandler{svc: svc}
}

// Matrix godoc
// @Summary Permission matrix: lowest role level holding each key
// @Tags permissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.PermissionMatrixResponse
// @Router /v1/permissions/matrix [get]
func (h *PermissionsHandler) Matrix(c *gin.Context) {
	resp, err := h.svc.GetMatrix(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMatrix godoc
// @Summary Assign permission keys to a minimum role
// @Tags permissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.UpdatePermissionMatrixRequest true "Assignments"
// @Success 200 {object} dto.PermissionMatrixResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/permissions/matrix [put]
func (h *PermissionsHandler) UpdateMatrix(c *gin.Context) {
	var req dto.UpdatePermissionMatrixRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateMatrix(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PermissionsHandler) Reset(c *gin.Context) {
	if err := h.svc.ResetToDefaults(c.Request.Context(), actorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "permissions reset to defaults"})
}

func (h *PermissionsHandler) Summary(c *gin.Context) {
	resp, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PermissionsHandler) Mine(c *gin.Context) {
	role := middleware.GetClaims(c).Role
	granted, err := h.svc.RolePermissions(c.Request.Context(), role)
	if err != nil {
		respondError(c, err)
		return
	}
	keys := make([]string, 0, len(granted))
	for k, ok := range granted {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	c.JSON(http.StatusOK, dto.MyPermissionsResponse{Role: role, Permissions: keys})
}
