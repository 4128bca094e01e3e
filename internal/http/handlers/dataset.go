package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/http/response"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type DatasetHandler struct {
	log      *logger.Logger
	datasets services.DatasetService
}

func NewDatasetHandler(baseLog *logger.Logger, datasets services.DatasetService) *DatasetHandler {
	return &DatasetHandler{log: baseLog.With("handler", "DatasetHandler"), datasets: datasets}
}

// POST /datasets/:id/upload/ (multipart: file, optional format)
func (h *DatasetHandler) Upload(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondErr(c, apierr.ValidationDetails("invalid input", []apierr.Detail{{Field: "file", Message: "is required"}}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondErr(c, apierr.Validation("read upload: %v", err))
		return
	}
	defer f.Close()

	file, err := h.datasets.Upload(c.Request.Context(), id, services.Upload{
		FileName: fh.Filename,
		Format:   c.PostForm("format"),
		Body:     f,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, file)
}

// POST /datasets/:id/validate/
func (h *DatasetHandler) Validate(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.datasets.Validate(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"dataset": res.Dataset,
		"errors":  res.Report.Errors,
		"report":  res.Report,
	})
}

// POST /datasets/:id/profile/
func (h *DatasetHandler) Profile(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	prof, err := h.datasets.Profile(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, prof)
}
