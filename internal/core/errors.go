package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation         = "validation"
	ErrCodeConflict           = "conflict"
	ErrCodeAuthRejected       = "auth_rejected"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeUnsupportedNetwork = "unsupported_network"
	ErrCodeDeliveryFailed     = "delivery_failed"
	ErrCodeBadRequest         = "bad_request"
	ErrCodeInternal           = "internal"
)

// Internal invariant violations. They are logged and the operation is
// dropped; they never reach a client as-is.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDuplicateSession = errors.New("duplicate session")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
