package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/persona-backend/internal/orchestrator"
	"github.com/yungbote/persona-backend/internal/platform/apierr"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error         string   `json:"error"`
	Code          string   `json:"code,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	RespondErr(c, apierr.New(status, code, err))
}

// RespondErr maps err onto a status and code. Orchestrator errors keep their kind as code.
func RespondErr(c *gin.Context, err error) {
	ae := FromError(err)
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	msg := "unknown error"
	if ae.Err != nil {
		msg = ae.Err.Error()
	}
	c.JSON(ae.Status, ErrorBody{Error: msg, Code: ae.Code, MissingFields: ae.MissingFields})
}

// FromError converts any error into an *apierr.Error.
func FromError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		if ae.Status == 0 {
			ae.Status = http.StatusInternalServerError
		}
		return ae
	}
	var oe *orchestrator.Error
	if errors.As(err, &oe) {
		return apierr.New(oe.HTTPStatus(), string(oe.Kind), errors.New(oe.Message)).WithMissing(oe.MissingFields)
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apierr.New(http.StatusRequestEntityTooLarge, "payload_too_large", err)
	}
	return apierr.New(http.StatusInternalServerError, "internal", errors.New("internal error"))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
