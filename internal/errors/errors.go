package errors

import "errors"

// This package defines a centralized set of sentinel errors for the
// application. Services return these recognizable errors without coupling
// themselves to HTTP status codes; the API layer checks them with
// `errors.Is()` and maps them to the correct responses.

var (
	// ErrValidation signifies that input data provided by a client failed
	// business rule validation.
	// This is typically mapped to a 400 Bad Request HTTP status.
	ErrValidation = errors.New("validation failed")

	// ErrConfig signifies that the settings file is missing or malformed.
	// It is fatal at startup: the process must not serve traffic with
	// unknown settings.
	ErrConfig = errors.New("configuration error")

	// ErrInternal signifies an unexpected error on the server. This is a
	// generic error used to prevent leaking implementation details to the
	// client. This is typically mapped to a 500 Internal Server Error.
	ErrInternal = errors.New("internal server error")
)
