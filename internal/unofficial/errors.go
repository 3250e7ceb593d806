package unofficial

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotConfigured is returned when no username or password is set.
	ErrNotConfigured = errors.New("Unofficial API not configured. Check TICKTICK_USERNAME and TICKTICK_PASSWORD.")

	// ErrLoginFailed marks every call made after login gave up.
	ErrLoginFailed = errors.New("unofficial API login failed")

	// ErrTaskNotFound is returned when a task id is unknown.
	ErrTaskNotFound = errors.New("task not found")
)

func taskNotFound(id string) error {
	return errors.Mark(errors.Newf("Task not found: %s", id), ErrTaskNotFound)
}

// APIError is a failed call to the unofficial API. StatusCode is 0 for
// transport failures.
type APIError struct {
	StatusCode int
	Body       string
	Method     string
	Endpoint   string
	Err        error

	// token is the session token the request was sent with.
	token string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request %s %s failed: %v", e.Method, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("API request failed: %s %s returned %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// StatusCodeOf extracts the status of an APIError in err's chain.
func StatusCodeOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// retryable reports whether a login error is worth another attempt:
// transport failures, 5xx and 429.
func retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch {
	case apiErr.StatusCode == 0:
		return true
	case apiErr.StatusCode == 429:
		return true
	case apiErr.StatusCode >= 500:
		return true
	}
	return false
}
