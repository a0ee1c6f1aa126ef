package services

import (
	"errors"

	"journal-backend/internal/models"

	"github.com/google/uuid"
)

// ErrorKind classifies service failures for callers that need to map them
// to a transport status.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindInvalidState    ErrorKind = "INVALID_STATE"
	KindValidation      ErrorKind = "VALIDATION_ERROR"
	// KindTransientLookup marks a lookup that failed for reasons other than
	// absence. The reconciliation engine folds it into a missing verdict and
	// it is never returned to a caller.
	KindTransientLookup ErrorKind = "TRANSIENT_LOOKUP_FAILURE"
	KindInternal        ErrorKind = "INTERNAL_ERROR"
)

// Error is a classified service error. Code is a stable machine-readable
// identifier for API clients.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrUnauthenticated = newError(KindUnauthenticated, "AUTH_REQUIRED", "authentication required")
	ErrForbidden       = newError(KindForbidden, "FORBIDDEN", "access denied")

	ErrMissingToken      = newError(KindValidation, "MISSING_TOKEN", "link token is required")
	ErrTokenNotFound     = newError(KindNotFound, "INVALID_TOKEN", "invalid link token")
	ErrTokenAlreadyUsed  = newError(KindInvalidState, "TOKEN_ALREADY_USED", "link token has already been used")
	ErrTokenExpired      = newError(KindInvalidState, "TOKEN_EXPIRED", "link token has expired")
	ErrAppNotFound       = newError(KindNotFound, "APP_NOT_FOUND", "connected app not found")
	ErrAppRevoked        = newError(KindForbidden, "APP_REVOKED", "connected app has been revoked")
	ErrAppAlreadyRevoked = newError(KindInvalidState, "APP_ALREADY_REVOKED", "connected app is already revoked")
	ErrInvalidSignature  = newError(KindUnauthenticated, "INVALID_SIGNATURE", "event signature is invalid")

	ErrMissingCopyParamsID = newError(KindValidation, "MISSING_COPY_PARAMS_ID", "copy params id is required")
	ErrCopyParamsNotFound  = newError(KindNotFound, "COPY_PARAMS_NOT_FOUND", "copy params not found")
	ErrCopiedTradeNotFound = newError(KindNotFound, "COPIED_TRADE_NOT_FOUND", "copied trade not found")
	ErrNotRequeueable      = newError(KindInvalidState, "NOT_REQUEUEABLE", "only mismatch or missing verdicts can be requeued")

	ErrMissingConnectionID = newError(KindValidation, "MISSING_CONNECTION_ID", "connection id is required")
	ErrConnectionNotFound  = newError(KindNotFound, "CONNECTION_NOT_FOUND", "connection not found")
	ErrConnectionRevoked   = newError(KindInvalidState, "CONNECTION_REVOKED", "connection has been revoked")

	ErrInvalidEvent = newError(KindValidation, "INVALID_EVENT", "copy event is malformed")

	errTransientLookup = newError(KindTransientLookup, "TRANSIENT_LOOKUP_FAILURE", "lookup failed")
)

// KindOf returns the kind of a classified error anywhere in err's chain,
// or KindInternal.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Caller identifies who is invoking an operation.
type Caller struct {
	UserID uuid.UUID
	Role   string
}

// SystemCaller is used by the scheduler and admin tooling.
func SystemCaller() Caller {
	return Caller{Role: RoleSystem}
}

// RoleSystem is granted to in-process jobs.
const RoleSystem = "system"

func (c Caller) IsAuthenticated() bool {
	return c.UserID != uuid.Nil || c.Role == RoleSystem
}

// CanAct reports whether the caller may operate on a resource owned by ownerID.
func (c Caller) CanAct(ownerID uuid.UUID) bool {
	if c.Role == models.RoleAdmin || c.Role == RoleSystem {
		return true
	}
	return c.UserID != uuid.Nil && c.UserID == ownerID
}
