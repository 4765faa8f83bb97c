package forgejo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

var (
	// ErrNotFound is returned when a resource does not exist. It is an
	// expected answer for every pre-creation existence lookup, never a
	// failure by itself.
	ErrNotFound = errors.New("forgejo resource not found")

	// ErrAlreadyExists is returned when the server rejects a creation
	// because the entity is already present
	ErrAlreadyExists = errors.New("forgejo resource already exists")

	// ErrValidation is returned when the server rejected the payload
	ErrValidation = errors.New("forgejo rejected payload")

	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("forgejo authentication failed")

	// ErrForbidden is returned when access is forbidden
	ErrForbidden = errors.New("forgejo access forbidden")

	// ErrServerError is returned when Forgejo returns a server error
	ErrServerError = errors.New("forgejo server error")

	// ErrTimeout is returned when a request times out before a response
	// arrives. For the repository migrate call this is not a failure
	// verdict: the import job keeps running server side.
	ErrTimeout = errors.New("forgejo request timeout")
)

// APIError wraps Forgejo API errors with request context
type APIError struct {
	StatusCode int
	Message    string
	URL        string
	Method     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("forgejo api error: %s (status: %d, method: %s, url: %s): %v",
			e.Message, e.StatusCode, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("forgejo api error: %s (status: %d, method: %s, url: %s)",
		e.Message, e.StatusCode, e.Method, e.URL)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newStatusError builds an APIError for a non-2xx response, mapping the
// status code onto the sentinel taxonomy.
func newStatusError(statusCode int, message, method, url string) error {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		URL:        url,
		Method:     method,
		Err:        mapErrorType(statusCode),
	}
}

// wrapTransportError classifies a request-level failure (no HTTP response)
func wrapTransportError(err error, method, url string) error {
	if err == nil {
		return nil
	}
	apiErr := &APIError{
		Message: err.Error(),
		URL:     url,
		Method:  method,
		Err:     err,
	}
	if isTimeout(err) {
		apiErr.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return apiErr
}

func mapErrorType(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAlreadyExists
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return ErrValidation
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return ErrServerError
	default:
		return nil
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExistsError checks if the server reported a duplicate
func IsAlreadyExistsError(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if the server rejected the payload
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTimeoutError checks if the request timed out without a response
func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// ErrorMessage extracts the server-provided message, falling back to the
// plain error text. Importers match on it for the documented
// assignee-validation fallback.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
