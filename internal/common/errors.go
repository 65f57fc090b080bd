package common

import (
	"errors"
	"net/http"
)

// Kind classifies application errors for translation at the HTTP boundary.
type Kind int

const (
	// KindInternal covers unexpected failures inside the service.
	KindInternal Kind = iota
	// KindInvalidInput marks missing or malformed request data.
	KindInvalidInput
	// KindInvalidSignature marks an HMAC mismatch. Always fails closed.
	KindInvalidSignature
	// KindNotFound marks a resource the gateway does not know about.
	KindNotFound
	// KindGatewayFailure marks an upstream non-2xx or network failure.
	KindGatewayFailure
)

// HTTPStatus maps an error kind to its response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindInvalidSignature:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AppError carries a classified error with a caller-visible message.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// E constructs an AppError.
func E(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// WriteError translates err into the canonical {"error": message} body. Errors
// that are not AppError become an opaque 500 so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	var app *AppError
	if errors.As(err, &app) {
		JSONError(w, app.Kind.HTTPStatus(), app.Message)
		return
	}
	JSONError(w, http.StatusInternalServerError, "Internal Server Error")
}
