package ticktick

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotAuthenticated is returned when no access token is available.
	ErrNotAuthenticated = errors.New("Not authenticated. Please complete OAuth flow at /oauth/start")

	// ErrUserIDNotConfigured is returned by Inbox accessors without a user id.
	ErrUserIDNotConfigured = errors.New("TICKTICK_USER_ID not set. Cannot access Inbox without user ID.")
)

// APIError is a failed call to the Open API. StatusCode is 0 when the
// request never produced a response (timeout, connection refused).
type APIError struct {
	StatusCode int
	Body       string
	Method     string
	Path       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("TickTick API request %s %s failed: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("TickTick API error %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// StatusCodeOf extracts the HTTP status of an APIError anywhere in err's
// chain. The second result is false when there is none.
func StatusCodeOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
