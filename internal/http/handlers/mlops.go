package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/http/response"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type MLOpsHandler struct {
	mlops services.MLOpsService
}

func NewMLOpsHandler(mlops services.MLOpsService) *MLOpsHandler {
	return &MLOpsHandler{mlops: mlops}
}

// POST /model-versions/:id/train/
func (h *MLOpsHandler) Train(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	v, err := h.mlops.Train(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, v)
}

// POST /model-versions/:id/deploy/
func (h *MLOpsHandler) Deploy(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	v, err := h.mlops.Deploy(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, v)
}

// POST /predict/
func (h *MLOpsHandler) Predict(c *gin.Context) {
	var in services.PredictInput
	if err := bindJSON(c, &in); err != nil {
		response.RespondErr(c, err)
		return
	}
	out, err := h.mlops.Predict(c.Request.Context(), &in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}
