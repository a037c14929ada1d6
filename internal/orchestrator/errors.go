package orchestrator

import (
	"fmt"
	"net/http"

	"github.com/yungbote/persona-backend/internal/provider"
)

// Request-level kinds that have no provider equivalent.
const (
	KindBadRequest provider.ErrorKind = "bad_request"
	KindNotFound   provider.ErrorKind = "not_found"
)

// RegenerateMessage is shown when synthesis completed but the assessment stayed incomplete.
const RegenerateMessage = "the analysis came back incomplete, please regenerate the analysis"

// Error is a request-level failure. Partial provider failures never surface as an Error.
type Error struct {
	Kind          provider.ErrorKind
	Message       string
	MissingFields []string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case provider.KindUnavailable:
		return http.StatusServiceUnavailable
	case provider.KindMediaProcessingFailed, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case provider.KindAllProvidersFailed:
		return http.StatusBadGateway
	case provider.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind provider.ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func badRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func mediaFailed(msg string, err error) *Error {
	return &Error{Kind: provider.KindMediaProcessingFailed, Message: msg, Err: err}
}

func validationFailed(missing []string) *Error {
	return &Error{Kind: provider.KindValidationFailed, Message: RegenerateMessage, MissingFields: missing}
}

// chainError turns an exhausted chain into a request error. Only Unavailable and
// AllProvidersFailed reach here; anything else is reported as AllProvidersFailed.
func chainError[T any](res provider.Result[T], what string) *Error {
	if res.Kind == provider.KindUnavailable {
		return &Error{Kind: provider.KindUnavailable, Message: fmt.Sprintf("no %s provider is configured", what)}
	}
	return &Error{Kind: provider.KindAllProvidersFailed, Message: fmt.Sprintf("every %s provider failed", what), Err: fmt.Errorf("%s", res.Detail)}
}
