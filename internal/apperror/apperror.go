package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindMissingCredential
	KindUnauthorized
	KindQuotaExceeded
	KindNotFound
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindMissingCredential:
		return "missing_credential"
	case KindUnauthorized:
		return "unauthorized"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// HTTPStatus maps a category to the coarse status the routes have always used.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindMissingCredential:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a client-facing message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Raw     error
}

func New(kind Kind, message string, raw error) Error {
	return Error{Kind: kind, Message: message, Raw: raw}
}

func (e Error) Error() string {
	if e.Raw == nil {
		return e.Message
	}
	return e.Message + ": " + e.Raw.Error()
}

func (e Error) Unwrap() error {
	return e.Raw
}

func InvalidInput(message string, raw error) Error {
	return New(KindInvalidInput, message, raw)
}

func MissingCredential(message string) Error {
	return New(KindMissingCredential, message, nil)
}

func Unauthorized(message string, raw error) Error {
	return New(KindUnauthorized, message, raw)
}

func QuotaExceeded(message string, raw error) Error {
	return New(KindQuotaExceeded, message, raw)
}

func NotFound(message string, raw error) Error {
	return New(KindNotFound, message, raw)
}

func Upstream(message string, raw error) Error {
	return New(KindUpstream, message, raw)
}

func Internal(message string, raw error) Error {
	return New(KindInternal, message, raw)
}

// As extracts an Error from err. Errors of any other type are reported as
// internal with a generic message.
func As(err error) Error {
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}
