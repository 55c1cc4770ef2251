package handler

import (
	"context"
	"net/http"

	"zedcmms/internal/apierror"

	"github.com/gin-gonic/gin"
)

// JobRunner triggers scheduled jobs on demand.
type JobRunner interface {
	JobNames() []string
	Running() bool
	RunNow(ctx context.Context, name string) (map[string]any, error)
}

type SchedulerHandler struct{ jobs JobRunner }

func NewSchedulerHandler(jobs JobRunner) *SchedulerHandler { return &SchedulerHandler{jobs: jobs} }

func (h *SchedulerHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.jobs.Running(), "jobs": h.jobs.JobNames()})
}

// Run godoc
// @Summary Run a scheduled job now
// @Tags scheduler
// @Produce json
// @Security BearerAuth
// @Param name path string true "Job name"
// @Success 200 {object} map[string]any
// @Failure 404 {object} apierror.APIError
// @Router /v1/scheduler/jobs/{name}/run [post]
func (h *SchedulerHandler) Run(c *gin.Context) {
	name := c.Param("name")
	known := false
	for _, n := range h.jobs.JobNames() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		c.JSON(http.StatusNotFound, apierror.WithCode("job not found", "NOT_FOUND",
			map[string]any{"resource_type": "job", "resource_id": name}))
		return
	}
	result, err := h.jobs.RunNow(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": name, "result": result})
}
