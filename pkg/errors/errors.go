package errors

import "fmt"

// ErrorType classifies the errors an album run can produce
type ErrorType string

const (
	// ErrorTypeFetch means the album page itself could not be retrieved.
	// Fatal: no album data exists without the page.
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeExtractionEmpty means the page was fetched but no image
	// references matched. Non-fatal: an empty album and a changed page
	// layout look the same, so this is surfaced as a warning.
	ErrorTypeExtractionEmpty ErrorType = "extraction_empty"
	// ErrorTypeImageDownload means a single image failed. Non-fatal: the
	// run records it and continues with the next image.
	ErrorTypeImageDownload ErrorType = "image_download"

	// Transport-level subtypes used by the HTTP client
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a classified error with the HTTP status code that
// produced it, when one exists
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a classified error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a classified error with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithCode attaches an HTTP status code to the error
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// IsFatal reports whether an error type aborts the whole run
func IsFatal(errorType ErrorType) bool {
	return errorType == ErrorTypeFetch
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
