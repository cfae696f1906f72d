package util

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeRateLimit    = "RATE_LIMIT_EXCEEDED"

	// Orchestrator error taxonomy
	ErrCodeAlreadyRunning    = "BOT_ALREADY_RUNNING"
	ErrCodeBotNotFound       = "BOT_NOT_FOUND"
	ErrCodeTransientIO       = "TRANSIENT_IO_ERROR"
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrCodeSessionLost       = "SESSION_LOST"
)

// NewAppError creates a new application error
func NewAppError(statusCode int, code, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// WrapError wraps an existing error
func WrapError(statusCode int, code, message string, err error) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}

// Common error constructors

func ErrBadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, ErrCodeBadRequest, message)
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func ErrForbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, ErrCodeForbidden, message)
}

func ErrNotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, ErrCodeNotFound, message)
}

func ErrValidation(message string) *AppError {
	return NewAppError(http.StatusBadRequest, ErrCodeValidation, message)
}

func ErrInternalServer(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, ErrCodeInternal, message)
}

func ErrRateLimit(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, ErrCodeRateLimit, message)
}

// Orchestrator error constructors

// ErrAlreadyRunning is returned when Start is called on a running bot
func ErrAlreadyRunning(message string) *AppError {
	return NewAppError(http.StatusConflict, ErrCodeAlreadyRunning, message)
}

// ErrTransientIO wraps a failed or timed-out external call. Recovery is
// local: the tick is skipped for that symbol or bot and logged, never fatal.
func ErrTransientIO(message string, err error) *AppError {
	return WrapError(http.StatusBadGateway, ErrCodeTransientIO, message, err)
}

// ErrInsufficientFunds marks a trade decision downgraded to no-trade
func ErrInsufficientFunds(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, ErrCodeInsufficientFunds, message)
}

// ErrSessionLost marks a lost broker session; all bots are paused until a
// session is re-established
func ErrSessionLost(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, ErrCodeSessionLost, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err is an AppError with the given code
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}
