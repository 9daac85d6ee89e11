package apperror

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Error codes for the credential subsystem
const (
	ErrPolicyViolation ErrorCode = iota + 2000
	ErrRoleInvalid
	ErrHashingUnavailable
	ErrGenerationFailure
	ErrNotFound
	ErrBadRequest
	ErrInternal
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// PolicyViolationError carries every broken password rule so callers can
// surface all of them at once.
type PolicyViolationError struct {
	Violations []string `json:"violations"`
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("password policy violation: %s", strings.Join(e.Violations, "; "))
}

// NewPolicyViolation wraps the full violation list from a policy evaluation.
func NewPolicyViolation(violations []string) *PolicyViolationError {
	return &PolicyViolationError{Violations: violations}
}

func RoleInvalid(name string) *AppError {
	return &AppError{
		Code:    ErrRoleInvalid,
		Message: fmt.Sprintf("unknown role %q", name),
	}
}

// HashingUnavailable marks a cryptographic primitive failure. There is no
// fallback to a weaker hash; the whole operation aborts.
func HashingUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrHashingUnavailable,
		Message: "password hashing unavailable",
		Err:     err,
	}
}

// GenerationFailure marks a passphrase generator defect. The generator must
// never hand back a weak passphrase, so this is fatal for the operation.
func GenerationFailure(err error) *AppError {
	return &AppError{
		Code:    ErrGenerationFailure,
		Message: "passphrase generation failed",
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}
