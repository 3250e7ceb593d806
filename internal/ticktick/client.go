package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
)

// DefaultBaseURL is the root of the TickTick Open API.
const DefaultBaseURL = "https://api.ticktick.com/open/v1"

// DefaultTimeout bounds a single Open API request.
const DefaultTimeout = 30 * time.Second

// Client talks to the TickTick Open API with a bearer token.
type Client struct {
	baseURL     string
	accessToken string
	userID      string
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records every API call on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates an Open API client. userID may be empty, in which case
// Inbox accessors fail with ErrUserIDNotConfigured.
func NewClient(accessToken, userID string, opts ...Option) (*Client, error) {
	if accessToken == "" {
		return nil, ErrNotAuthenticated
	}
	c := &Client{
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		userID:      userID,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceOfficial)
	return c, nil
}

// UserID returns the configured user id, possibly empty.
func (c *Client) UserID() string {
	return c.userID
}

// InboxID returns "inbox"+userID.
func (c *Client) InboxID() (string, error) {
	if c.userID == "" {
		return "", ErrUserIDNotConfigured
	}
	return "inbox" + c.userID, nil
}

// do performs a request against path and decodes a JSON response into out
// when out is non-nil. Empty bodies are accepted for any 2xx status.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceOfficial, operation, path)
	defer span.End()

	start := time.Now()
	status, err := c.roundTrip(ctx, method, path, body, out)
	c.metrics.RecordAPICall(ctx, instrumentation.ServiceOfficial, operation, status, time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("open api call failed",
			logging.Endpoint(path),
			slog.String("method", method),
			slog.Int(logging.KeyStatus, status),
			logging.Err(err))
		return err
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &APIError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Method:     method,
			Path:       path,
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	return resp.StatusCode, nil
}
