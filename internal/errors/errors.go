package errors

import "fmt"

// ErrorCode represents a Klartext error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrInvalidState     ErrorCode = "INVALID_STATE"     // 409
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrNoDocument       ErrorCode = "NO_DOCUMENT"       // 409
	ErrRemoteFailed     ErrorCode = "REMOTE_FAILED"     // 502
	ErrCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE" // 503
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// KlartextError represents a structured error with code, status, and details.
type KlartextError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *KlartextError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *KlartextError {
	return &KlartextError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidState creates a 409 error for a command issued in the wrong run state.
// The state machine is left unchanged; the caller may retry once the engine is idle.
func NewInvalidState(command, state string) *KlartextError {
	return &KlartextError{
		Code:    ErrInvalidState,
		Status:  409,
		Message: fmt.Sprintf("cannot %s while engine is %s", command, state),
		Details: map[string]any{"command": command, "state": state},
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(identifier string) *KlartextError {
	return &KlartextError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewNoDocument creates a 409 error for page commands issued before a document is loaded.
func NewNoDocument() *KlartextError {
	return &KlartextError{
		Code:    ErrNoDocument,
		Status:  409,
		Message: "no document loaded; call page_load first",
	}
}

// NewRemoteFailed creates a 502 error for a failed simplification service call.
func NewRemoteFailed(status int, detail string) *KlartextError {
	msg := "simplification service call failed"
	if detail != "" {
		msg = fmt.Sprintf("simplification service call failed: %s", detail)
	}
	return &KlartextError{
		Code:    ErrRemoteFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"upstream_status": status},
	}
}

// NewCacheUnavailable creates a 503 error for a broken persistence layer.
// The cache store recovers from this internally; it only reaches callers
// through explicit cache commands such as clear.
func NewCacheUnavailable(err error) *KlartextError {
	msg := "cache persistence unavailable"
	if err != nil {
		msg = fmt.Sprintf("cache persistence unavailable: %v", err)
	}
	return &KlartextError{
		Code:    ErrCacheUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *KlartextError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &KlartextError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a KlartextError with the given code.
func Is(err error, code ErrorCode) bool {
	if kErr, ok := err.(*KlartextError); ok {
		return kErr.Code == code
	}
	return false
}
