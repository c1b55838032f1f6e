package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rejap-backend/internal/platform/apierr"
)

// ErrorCodeKey holds the code of the error envelope written for a request.
const ErrorCodeKey = "error_code"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	c.Set(ErrorCodeKey, code)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps typed service errors onto their status and code.
// Anything untyped is an internal error and its message is not echoed.
func RespondAPIError(c *gin.Context, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		RespondError(c, apiErr.Status, apiErr.Code, apiErr)
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, errors.New("internal server error"))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
