package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
)

var errInternal = errors.New("internal server error")

type APIError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []apierr.Detail `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Code: code, Message: msg}})
}

// RespondErr maps a service error onto its status and envelope. Anything that
// is not an *apierr.Error is a 500 whose message is not exposed.
func RespondErr(c *gin.Context, err error) {
	if err == nil {
		RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, nil)
		return
	}
	_ = c.Error(err)
	e := apierr.As(err)
	if e.Code == apierr.CodeInternal {
		RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, errInternal)
		return
	}
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{
		Code:    e.Code,
		Message: e.Error(),
		Details: e.Details,
	}})
}
