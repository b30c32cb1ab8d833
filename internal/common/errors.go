package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound        = errors.New("requested resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden access")
	ErrBadRequest      = errors.New("bad request")
	ErrConflict        = errors.New("resource conflict") // e.g., email already registered
	ErrInternalServer  = errors.New("internal server error")
	ErrValidation      = errors.New("validation failed")
	ErrTooManyRequests = errors.New("too many requests")
)

// Token verification outcomes. All of them are authentication failures.
var (
	ErrTokenExpired     = fmt.Errorf("Token has expired: %w", ErrUnauthorized)
	ErrInvalidSignature = fmt.Errorf("Invalid token signature: %w", ErrUnauthorized)
	ErrMalformedToken   = fmt.Errorf("Invalid token: %w", ErrUnauthorized)
	ErrInvalidLogin     = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
)

// Second-factor outcomes. All of them are authorization failures.
var (
	ErrInvalidOTP     = fmt.Errorf("invalid otp token: %w", ErrForbidden)
	ErrOTPNotVerified = fmt.Errorf("otp not validated: %w", ErrForbidden)
	ErrOTPNotEnabled  = fmt.Errorf("otp not enabled: %w", ErrForbidden)
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrTooManyRequests) {
		return http.StatusTooManyRequests
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// PublicMessage is the text safe to return to a client for err.
// Anything that maps to 500 collapses to a generic message.
func PublicMessage(err error) string {
	if HTTPStatusFromError(err) == http.StatusInternalServerError {
		return ErrInternalServer.Error()
	}
	return err.Error()
}
