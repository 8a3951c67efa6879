package navigator

import "fmt"

const (
	CodeValidation        = "VALIDATION"
	CodeAuthFailed        = "AUTH_FAILED"
	CodeNavFailed         = "NAV_FAILED"
	CodeChartListNotFound = "CHARTLIST_NOT_FOUND"
	CodeChartNotFound     = "CHART_NOT_FOUND"
	CodeElementNotFound   = "ELEMENT_NOT_FOUND"
	CodeSessionPersist    = "SESSION_PERSISTENCE"
	CodeCDPUnavailable    = "CDP_UNAVAILABLE"
)

// CodedError is a typed error used for stable API mapping and fallback
// decisions up the stack.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}
