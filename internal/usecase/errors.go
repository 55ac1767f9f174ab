package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidSubmission ErrorCode = "INVALID_SUBMISSION"
	ErrorCaptchaFailed     ErrorCode = "CAPTCHA_FAILED"
	ErrorMissingFields     ErrorCode = "MISSING_FIELDS"
	ErrorInvalidEmail      ErrorCode = "INVALID_EMAIL"
	ErrorNotConfigured     ErrorCode = "NOT_CONFIGURED"
	ErrorDelivery          ErrorCode = "DELIVERY_FAILED"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	// Fields maps form field names to messages for MISSING_FIELDS.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
