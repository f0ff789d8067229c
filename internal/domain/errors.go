package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg}
}

func ErrInsufficientBalance(code string) *AppError {
	return &AppError{Code: "INSUFFICIENT_BALANCE", Message: fmt.Sprintf("insufficient %s balance", code)}
}

func ErrPersistence(msg string, cause error) *AppError {
	return &AppError{Code: "PERSISTENCE_FAILURE", Message: msg, Cause: cause}
}

func ErrStaleResponse(resourceKey string) *AppError {
	return &AppError{Code: "STALE_RESPONSE", Message: fmt.Sprintf("superseded fetch for %s", resourceKey)}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Cause: cause}
}
