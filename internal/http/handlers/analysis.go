package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/http/response"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type AnalysisHandler struct {
	analysis services.AnalysisService
}

func NewAnalysisHandler(analysis services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// POST /analysis-runs/:id/execute/
// A failed computation still answers 200 with the failed run.
func (h *AnalysisHandler) Execute(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	run, err := h.analysis.Execute(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, run)
}
