package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeConflict     = "ADMIN_IDENTITY_CONFLICT"
	TextCodeUnauthorized = "UNAUTHORIZED"
	TextCodeForbidden    = "CSRF_INVALID"
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	TextCodeTokenInvalid = "TOKEN_MALFORMED"
	TextCodeTokenKind    = "TOKEN_KIND_MISMATCH"
	TextCodeStoreFailure = "STORE_FAILURE"
)

// ErrConflict is returned by signup when the username or email is taken
var ErrConflict = errors.New("Email or username already in use", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrUnauthorized is the single condition callers see for any credential failure
var ErrUnauthorized = errors.New("Invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrMissingRefreshToken is returned by the refresh endpoint when the cookie is absent
var ErrMissingRefreshToken = errors.New("Missing refresh token", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when the double-submit CSRF check fails
var ErrForbidden = errors.New("Invalid CSRF token", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is used internally when the exp claim has passed
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures and structurally invalid tokens
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenKindMismatch is used when an access token is presented as refresh or the other way around
var ErrTokenKindMismatch = errors.New("token kind mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeTokenKind).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty secret
var ErrNoEmptyString = errors.New("secret must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a secret does not match its digest
var ErrMismatchedHashAndPassword = errors.New("secret does not match hash", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUnauthorized reports whether err resolves to the generic auth failure
func IsUnauthorized(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuth
}

// IsForbidden reports whether err is a CSRF rejection
func IsForbidden(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuthz
}

// IsConflict reports whether err is a duplicate identity failure
func IsConflict(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryConflict
}

// storeFailure wraps persistence errors so they never read as auth failures.
func storeFailure(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode(TextCodeStoreFailure).
		WithCode(errors.CodeInternal)
}

// HTTPStatus maps an error to the status code the transport should use.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}
