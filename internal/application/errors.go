package application

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to handlers. Idempotency guards and user-correctable
// input problems are plain messages; anything else is an upstream failure and
// is logged with context before being answered as a generic server error.
var (
	ErrAlreadyRegistered = errors.New("this email is already registered")
	ErrAlreadyComplete   = errors.New("profile is already complete")
	ErrInvalidOTP        = errors.New("invalid or expired verification code")
	ErrEmailCooldown     = errors.New("a verification email was sent recently, wait before retrying")
	ErrNotFound          = errors.New("not found")
)

// DomainNotAllowedError carries the offending domain for diagnostics.
type DomainNotAllowedError struct {
	Domain string
}

func (e *DomainNotAllowedError) Error() string {
	return fmt.Sprintf("email domain %q is not allowed", e.Domain)
}

// ValidationError is a user-correctable input problem, surfaced verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
