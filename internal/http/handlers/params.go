package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
)

func pathID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.Validation("invalid id %q", raw)
	}
	return id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.Validation("invalid JSON body: %v", err)
	}
	return nil
}
