package errs

import (
	"fmt"
	"net/http"
	"strings"

	"policethief/internal/pkg/logx"
)

// CustomError is the error value returned to API and WebSocket clients.
type CustomError struct {
	// Code is the business error code.
	Code int

	// Message is safe to show to the end user.
	Message string

	// Status is the HTTP status used when the error is written as a response.
	Status int
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is matches any *CustomError carrying the same code, so errors.Is works against
// values built with NewError.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Code == e.Code
}

// NewError builds a *CustomError from the code table.
// details are printf arguments for messages with placeholders; for ErrUnknown the first
// detail may be the underlying error, which is logged and never shown to the client.
// Unknown codes degrade to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Error(fmt.Errorf("code %d missing from error table", code), "unknown error code requested")
		tmpl = errorMap[ErrUnknown]
	}

	e := tmpl
	if e.Status == 0 {
		e.Status = http.StatusOK
	}

	if len(details) == 0 {
		return &e
	}

	if e.Code == ErrUnknown {
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "internal error surfaced as ErrUnknown")
		}
		return &e
	}

	if strings.Contains(e.Message, "%") {
		e.Message = fmt.Sprintf(e.Message, details...)
	} else {
		logx.Warn("error details ignored; message has no placeholder", "code", e.Code)
	}

	return &e
}
