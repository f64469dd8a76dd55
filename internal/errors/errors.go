package errors

import (
	"errors"
	"net/http"
	"runtime/debug"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Status maps the kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error

	stack []byte // call site of Wrap or a constructor; empty for sentinels
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind and code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Wrap attaches a cause to a sentinel, keeping its kind, code and message.
// The returned error records the stack of the caller.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err, stack: debug.Stack()}
}

// StackOf returns the stack recorded by the outermost *Error in err's chain
// that has one.
func StackOf(err error) string {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return ""
		}
		if len(appErr.stack) > 0 {
			return string(appErr.stack)
		}
		err = appErr.Err
	}
	return ""
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = newError(KindAuthentication, "INVALID_CREDENTIALS", "Invalid credentials")
	// ErrAccountDeactivated is returned when the account is soft-deactivated.
	ErrAccountDeactivated = newError(KindAuthentication, "ACCOUNT_DEACTIVATED", "Account is deactivated")
	// ErrMissingToken is returned when no bearer token was supplied.
	ErrMissingToken = newError(KindAuthentication, "MISSING_TOKEN", "Access token is required")
	// ErrInvalidToken is returned for a token with a bad signature or structure.
	ErrInvalidToken = newError(KindAuthentication, "INVALID_TOKEN", "Invalid token")
	// ErrExpiredToken is returned for a well-formed token past its expiry.
	ErrExpiredToken = newError(KindAuthentication, "EXPIRED_TOKEN", "Token has expired")
	// ErrRevokedToken is returned for a token revoked by logout.
	ErrRevokedToken = newError(KindAuthentication, "REVOKED_TOKEN", "Token has been revoked")
	// ErrUserNotFound is returned when a token refers to a missing or deleted user.
	ErrUserNotFound = newError(KindAuthentication, "USER_NOT_FOUND", "User not found")
	// ErrInvalidRefreshToken is returned when a refresh token cannot be used.
	ErrInvalidRefreshToken = newError(KindAuthentication, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
	// ErrIncorrectPassword is returned when the current password does not verify.
	ErrIncorrectPassword = newError(KindAuthentication, "INCORRECT_PASSWORD", "Current password is incorrect")
	// ErrInsufficientPermissions is returned when the caller lacks the role or permission.
	ErrInsufficientPermissions = newError(KindAuthorization, "INSUFFICIENT_PERMISSIONS", "Insufficient permissions")
	// ErrEmailExists is returned when registering an email that is already taken.
	ErrEmailExists = newError(KindConflict, "EMAIL_EXISTS", "User with this email already exists")
	// ErrInvalidResetToken is returned for an unknown, used or expired reset token.
	ErrInvalidResetToken = newError(KindValidation, "INVALID_RESET_TOKEN", "Invalid or expired reset token")
	// ErrSchoolNotFound is returned when a referenced school does not exist.
	ErrSchoolNotFound = newError(KindNotFound, "SCHOOL_NOT_FOUND", "School not found")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = newError(KindNotFound, "NOT_FOUND", "Resource not found")
)

// NewValidation builds a 400 error with a custom message.
func NewValidation(message string) *Error {
	err := newError(KindValidation, "VALIDATION_ERROR", message)
	err.stack = debug.Stack()
	return err
}

// NewAuthorization builds a 403 error with a custom message.
func NewAuthorization(message string) *Error {
	err := newError(KindAuthorization, "FORBIDDEN", message)
	err.stack = debug.Stack()
	return err
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Kind       Kind
}

func (e *HTTPError) Error() string {
	return e.Message
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   e.Message,
		Code:    e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unknown errors become a
// generic 500 so internal details never reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	var appErr *Error
	if errors.As(err, &appErr) {
		return &HTTPError{
			StatusCode: appErr.Status(),
			Message:    appErr.Message,
			Code:       appErr.Code,
			Kind:       appErr.Kind,
		}
	}
	return &HTTPError{
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
		Code:       "INTERNAL_ERROR",
		Kind:       KindInternal,
	}
}
