package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/http/response"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// POST /jobs/:id/run/
func (h *JobHandler) RunJob(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	job, err := h.jobs.Run(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, job)
}

// POST /jobs/:id/cancel/
func (h *JobHandler) CancelJob(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	job, err := h.jobs.Cancel(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, job)
}

// GET /jobs/pending/?queue=&limit=
func (h *JobHandler) Pending(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondErr(c, apierr.Validation("invalid limit %q", raw))
			return
		}
		limit = n
	}
	jobs, err := h.jobs.Pending(c.Request.Context(), c.Query("queue"), limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, jobs)
}
