package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies a failure by the user action it interrupts.
type ErrorType string

const (
	TypePermissionDenied   ErrorType = "PERMISSION_DENIED"
	TypeNoDevice           ErrorType = "NO_DEVICE"
	TypeUnsupportedCodec   ErrorType = "UNSUPPORTED_CODEC"
	TypeNetwork            ErrorType = "NETWORK"
	TypeValidation         ErrorType = "VALIDATION"
	TypeInvalidCredentials ErrorType = "INVALID_CREDENTIALS"
	TypeNotFound           ErrorType = "NOT_FOUND"
	TypeConflict           ErrorType = "CONFLICT"
	TypeInternal           ErrorType = "INTERNAL"
)

// AppError is the single user-facing failure of one action.
type AppError struct {
	Type    ErrorType
	Message string
	Fields  []string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewPermissionDenied(message string, err error) *AppError {
	return &AppError{Type: TypePermissionDenied, Message: message, Err: err}
}

func NewNoDevice(message string) *AppError {
	return &AppError{Type: TypeNoDevice, Message: message}
}

func NewUnsupportedCodec(message string) *AppError {
	return &AppError{Type: TypeUnsupportedCodec, Message: message}
}

func NewNetwork(message string, err error) *AppError {
	return &AppError{Type: TypeNetwork, Message: message, Err: err}
}

func NewValidation(message string, fields ...string) *AppError {
	return &AppError{Type: TypeValidation, Message: message, Fields: fields}
}

func NewInvalidCredentials(message string) *AppError {
	return &AppError{Type: TypeInvalidCredentials, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Type: TypeNotFound, Message: message}
}

func NewConflict(message string) *AppError {
	return &AppError{Type: TypeConflict, Message: message}
}

func NewInternal(message string, err error) *AppError {
	return &AppError{Type: TypeInternal, Message: message, Err: err}
}

// Is reports whether err carries an AppError of type t anywhere in its chain.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// As returns the first AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
