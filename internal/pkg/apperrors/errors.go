package apperrors

import "errors"

// Request errors
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidFormat      = errors.New("invalid token format")
)

// Issuance pipeline errors. Each one names the component that failed.
var (
	ErrPublishFailed     = errors.New("content publish failed")
	ErrEnrollmentFailed  = errors.New("ledger enrollment failed")
	ErrMintFailed        = errors.New("credential mint failed")
	ErrRemovalFailed     = errors.New("student removal failed")
	ErrInsufficientFunds = errors.New("signing wallet has insufficient funds for transaction fees")
	ErrNotEnrolled       = errors.New("student is not enrolled")
)

// Registry errors
var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrIssuanceNotFound   = errors.New("issuance not found")
	ErrReadReconciliation = errors.New("registry record could not be reconciled")
	ErrLedgerUnavailable  = errors.New("ledger read failed")
)

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *CustomError {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// Wrap classifies cause under kind, keeping both reachable through errors.Is.
func Wrap(kind, cause error, message string) *CustomError {
	return &CustomError{
		Err:     kind,
		Cause:   cause,
		Message: message,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Cause   error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the error kind and the underlying cause
func (e *CustomError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// CauseMessage returns the innermost CustomError's cause message, or the error text itself.
func CauseMessage(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Cause != nil {
		return ce.Cause.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
