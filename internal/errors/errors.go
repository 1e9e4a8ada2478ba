package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so wrapped sentinels compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrAITransport     = &AppError{Code: "AI_001", Message: "AI endpoint unreachable"}
	ErrAIStatus        = &AppError{Code: "AI_002", Message: "AI endpoint returned an error status"}
	ErrAIUnreadable    = &AppError{Code: "AI_003", Message: "AI response could not be read"}
	ErrAIEmpty         = &AppError{Code: "AI_004", Message: "AI response had no content"}
	ErrAICircuitOpen   = &AppError{Code: "AI_005", Message: "AI endpoint circuit open"}
	ErrAIRateLimited   = &AppError{Code: "AI_006", Message: "AI request rate limited"}
	ErrAINotConfigured = &AppError{Code: "AI_007", Message: "AI endpoint not configured"}

	ErrRecordNotFound = &AppError{Code: "STORE_001", Message: "record not found"}
	ErrStoreQuery     = &AppError{Code: "STORE_002", Message: "record query failed"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapAs wraps err under the code and message of a sentinel.
func WrapAs(sentinel *AppError, err error) *AppError {
	return Wrap(err, sentinel.Code, sentinel.Message)
}

// Is reports whether err matches target, delegating to the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
