package apperror

import "errors"

type Code string

const (
	CodeValidation   Code = "validation"
	CodeDuplicate    Code = "duplicate"
	CodeNotFound     Code = "not_found"
	CodeInvalidID    Code = "invalid_id"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// GetCode extracts the application error code, defaulting to internal for
// errors that did not originate from this package.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}
