package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/http/response"
	"github.com/yungbote/tagledger-backend/internal/services"
)

// ResourceHandler serves the CRUD endpoints of one collection.
type ResourceHandler[T any, In any] struct {
	res *services.Resource[T, In]
}

func NewResourceHandler[T any, In any](res *services.Resource[T, In]) *ResourceHandler[T, In] {
	return &ResourceHandler[T, In]{res: res}
}

// GET /<collection>/
func (h *ResourceHandler[T, In]) List(c *gin.Context) {
	rows, err := h.res.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// GET /<collection>/:id/
func (h *ResourceHandler[T, In]) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	row, err := h.res.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, row)
}

// POST /<collection>/
func (h *ResourceHandler[T, In]) Create(c *gin.Context) {
	var in In
	if err := bindJSON(c, &in); err != nil {
		response.RespondErr(c, err)
		return
	}
	row, err := h.res.Create(c.Request.Context(), &in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, row)
}

// PUT /<collection>/:id/
func (h *ResourceHandler[T, In]) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var in In
	if err := bindJSON(c, &in); err != nil {
		response.RespondErr(c, err)
		return
	}
	row, err := h.res.Update(c.Request.Context(), id, &in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, row)
}

// DELETE /<collection>/:id/
func (h *ResourceHandler[T, In]) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.res.Delete(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}

// Ops selects which CRUD routes Mount registers.
type Ops uint8

const (
	OpList Ops = 1 << iota
	OpGet
	OpCreate
	OpUpdate
	OpDelete

	ReadOnly = OpList | OpGet
	AllOps   = OpList | OpGet | OpCreate | OpUpdate | OpDelete
)

// Mount registers the selected routes under g at "/<path>/" and "/<path>/:id/".
func (h *ResourceHandler[T, In]) Mount(g *gin.RouterGroup, path string, ops Ops) {
	base := "/" + path + "/"
	item := base + ":id/"
	if ops&OpList != 0 {
		g.GET(base, h.List)
	}
	if ops&OpCreate != 0 {
		g.POST(base, h.Create)
	}
	if ops&OpGet != 0 {
		g.GET(item, h.Get)
	}
	if ops&OpUpdate != 0 {
		g.PUT(item, h.Update)
	}
	if ops&OpDelete != 0 {
		g.DELETE(item, h.Delete)
	}
}
