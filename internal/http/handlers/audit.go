package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/http/response"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type AuditHandler struct {
	audit services.AuditService
}

func NewAuditHandler(audit services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /audit-logs/
func (h *AuditHandler) List(c *gin.Context) {
	rows, err := h.audit.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// GET /audit-logs/:id/
func (h *AuditHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	rec, err := h.audit.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rec)
}
