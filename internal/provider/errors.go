package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/persona-backend/internal/platform/httpx"
)

// ErrNotConfigured is returned by adapters asked to work without credentials.
var ErrNotConfigured = errors.New("provider not configured")

type malformedError struct{ err error }

func (e *malformedError) Error() string { return "malformed response: " + e.err.Error() }
func (e *malformedError) Unwrap() error { return e.err }

// Malformed marks err as a response that did not match the expected shape.
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return &malformedError{err: err}
}

// Malformedf is Malformed(fmt.Errorf(...)).
func Malformedf(format string, args ...any) error {
	return Malformed(fmt.Errorf(format, args...))
}

func IsMalformed(err error) bool {
	var m *malformedError
	if errors.As(err, &m) {
		return true
	}
	var d *httpx.DecodeError
	return errors.As(err, &d)
}

// Classify maps an adapter error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		return KindUnavailable
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return KindUnavailable
	case IsMalformed(err):
		return KindMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		if k := kindForHTTPStatus(sc.HTTPStatusCode()); k != KindNone {
			return k
		}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return KindAuthFailed
		case codes.ResourceExhausted:
			return KindRateLimited
		case codes.DeadlineExceeded:
			return KindTimeout
		case codes.Unavailable:
			return KindUnavailable
		case codes.InvalidArgument, codes.FailedPrecondition, codes.DataLoss:
			return KindMalformed
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}

func kindForHTTPStatus(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return KindAuthFailed
	case code == 429:
		return KindRateLimited
	case code == 408 || code == 504:
		return KindTimeout
	case code == 502 || code == 503:
		return KindUnavailable
	case code >= 400:
		return KindUnknown
	}
	return KindNone
}
