package errors

import "errors"

// Error codes shared across domains. Handlers map these onto HTTP statuses;
// the chart pipeline additionally folds them into its status envelope.
const (
	CodeInvalidInput         = "invalid_input"
	CodeMissingFields        = "missing_fields"
	CodeInvalidTime          = "invalid_time"
	CodeEphemerisUnavailable = "ephemeris_unavailable"
	CodeEphemerisError       = "ephemeris_error"
	CodeHouseError           = "house_error"
	CodeUnparsableDate       = "unparsable_date"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeNoPackage            = "no_package"
	CodeExpired              = "expired"
	CodeNoQuota              = "no_quota"
	CodeNotFound             = "not_found"
	CodeStoreError           = "store_error"
	CodeLLMError             = "llm_error"
	CodePaymentError         = "payment_error"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps callers differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Message extracts the human readable message, falling back to Error().
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
