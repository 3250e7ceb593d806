package unofficial

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	"github.com/looplab/fsm"
	"golang.org/x/time/rate"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
)

// DefaultBaseURL is the host of the internal web API.
const DefaultBaseURL = "https://api.ticktick.com"

const (
	// DefaultTimeout bounds one request, including a login attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultLoginAttempts is the login retry budget.
	DefaultLoginAttempts = 3

	// DefaultLoginInterval is the wait before the second attempt. It
	// doubles with every further attempt.
	DefaultLoginInterval = 500 * time.Millisecond

	signonPath   = "/api/v2/user/signon"
	sessionToken = "t"
)

// Session states.
const (
	StateUnauthenticated = "unauthenticated"
	StateAuthenticating  = "authenticating"
	StateAuthenticated   = "authenticated"
	StateFailed          = "failed"
)

// Session events.
const (
	eventLogin      = "login"
	eventSucceed    = "succeed"
	eventFail       = "fail"
	eventInvalidate = "invalidate"
	eventAbort      = "abort"
)

// SessionCache persists the session token between runs.
type SessionCache interface {
	Load() (*config.TokenCache, error)
	Save(cache *config.TokenCache) error
	Clear() error
}

// Session is a logged-in web session. It is safe for concurrent use; at
// most one login is in flight at any time.
type Session struct {
	username string
	password string

	baseURL    string
	httpClient *http.Client
	deviceID   string
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	now        func() time.Time

	cache      SessionCache
	trustCache bool

	loginAttempts uint
	loginInterval time.Duration

	mu        sync.Mutex
	machine   *fsm.FSM
	token     string
	fromCache bool
	loginErr  error
	userID    string
	inboxID   string
}

// Option configures a Session.
type Option func(*Session)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) Option {
	return func(s *Session) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) { s.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics records calls and login attempts on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithRateLimit paces requests to r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Session) { s.limiter = rate.NewLimiter(rate.Limit(r), burst) }
}

// WithSessionCache stores successful logins in cache. When trust is true a
// non-expired cached token is used without logging in.
func WithSessionCache(cache SessionCache, trust bool) Option {
	return func(s *Session) {
		s.cache = cache
		s.trustCache = trust
	}
}

// WithLoginRetry sets the login attempt budget and the initial backoff.
func WithLoginRetry(attempts uint, initial time.Duration) Option {
	return func(s *Session) {
		s.loginAttempts = attempts
		s.loginInterval = initial
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession returns an unauthenticated session. Nothing is sent until the
// first call.
func NewSession(username, password string, opts ...Option) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrNotConfigured
	}
	s := &Session{
		username:      username,
		password:      password,
		baseURL:       DefaultBaseURL,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		deviceID:      newDeviceID(),
		limiter:       rate.NewLimiter(rate.Limit(10), 10),
		logger:        slog.Default(),
		now:           time.Now,
		loginAttempts: DefaultLoginAttempts,
		loginInterval: DefaultLoginInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithService(s.logger, instrumentation.ServiceUnofficial)
	s.machine = fsm.NewFSM(
		StateUnauthenticated,
		fsm.Events{
			{Name: eventLogin, Src: []string{StateUnauthenticated}, Dst: StateAuthenticating},
			{Name: eventSucceed, Src: []string{StateAuthenticating}, Dst: StateAuthenticated},
			{Name: eventFail, Src: []string{StateAuthenticating}, Dst: StateFailed},
			{Name: eventInvalidate, Src: []string{StateAuthenticated}, Dst: StateUnauthenticated},
			{Name: eventAbort, Src: []string{StateAuthenticating}, Dst: StateUnauthenticated},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.logger.Debug("session state changed", slog.String("from", e.Src), slog.String("to", e.Dst))
			},
		},
	)
	return s, nil
}

// State returns the current session state.
func (s *Session) State() string {
	return s.machine.Current()
}

// UserID returns the user id reported by the last login, if any.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// InboxID returns the inbox project id reported by the last login, if any.
func (s *Session) InboxID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inboxID
}

// Login authenticates the session if it is not already.
func (s *Session) Login(ctx context.Context) error {
	_, err := s.ensureAuthenticated(ctx)
	return err
}

// ensureAuthenticated returns a usable token, logging in at most once across
// concurrent callers.
func (s *Session) ensureAuthenticated(ctx context.Context) (string, error) {
	if s.machine.Is(StateAuthenticated) {
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()
		if token != "" {
			return token, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.machine.Current() {
	case StateAuthenticated:
		return s.token, nil
	case StateFailed:
		return "", errors.Mark(errors.Wrap(s.loginErr, ErrLoginFailed.Error()), ErrLoginFailed)
	}

	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "login not started")
	}

	// Transitions must complete even when the caller gives up, or the
	// machine stays in transition and rejects every later event.
	evCtx := context.WithoutCancel(ctx)
	if err := s.machine.Event(evCtx, eventLogin); err != nil {
		return "", errors.Wrap(err, "start login")
	}

	if token, ok := s.cachedToken(); ok {
		s.token = token
		s.fromCache = true
		if err := s.machine.Event(evCtx, eventSucceed); err != nil {
			return "", errors.Wrap(err, "adopt cached session")
		}
		s.logger.Info("using cached session token")
		return token, nil
	}

	resp, err := s.login(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// The caller left before the retry budget was spent; the next
			// caller logs in again.
			_ = s.machine.Event(evCtx, eventAbort)
			s.logger.Warn("login interrupted", logging.Err(err))
			return "", errors.Wrap(err, "login interrupted")
		}
		s.loginErr = err
		_ = s.machine.Event(evCtx, eventFail)
		s.logger.Error("login failed, unofficial API disabled",
			logging.UserHash(s.username), logging.Err(err))
		return "", errors.Mark(errors.Wrap(err, ErrLoginFailed.Error()), ErrLoginFailed)
	}

	s.token = resp.Token
	s.fromCache = false
	s.userID = resp.UserID.String()
	s.inboxID = resp.InboxID
	if err := s.machine.Event(evCtx, eventSucceed); err != nil {
		return "", errors.Wrap(err, "finish login")
	}
	s.saveToken(resp.Token)
	s.logger.Info("logged in", logging.UserHash(s.username))
	return resp.Token, nil
}

func (s *Session) cachedToken() (string, bool) {
	if !s.trustCache || s.cache == nil {
		return "", false
	}
	cached, err := s.cache.Load()
	if err != nil {
		if !errors.Is(err, config.ErrNoToken) {
			s.logger.Warn("ignoring unreadable session cache", logging.Err(err))
		}
		return "", false
	}
	if cached.AccessToken == "" || cached.Expired(s.now()) {
		return "", false
	}
	return cached.AccessToken, true
}

func (s *Session) saveToken(token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(config.NewTokenCache(token, "", 0, s.now())); err != nil {
		s.logger.Warn("failed to write session cache", logging.Err(err))
	}
}

// invalidate drops a cached token the server rejected. It reports whether
// the caller should log in and retry.
func (s *Session) invalidate(ctx context.Context, rejected string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fromCache || s.token != rejected || !s.machine.Is(StateAuthenticated) {
		return false
	}
	if err := s.machine.Event(context.WithoutCancel(ctx), eventInvalidate); err != nil {
		return false
	}
	s.token = ""
	s.fromCache = false
	if s.cache != nil {
		if err := s.cache.Clear(); err != nil {
			s.logger.Warn("failed to clear session cache", logging.Err(err))
		}
	}
	s.logger.Info("cached session rejected, logging in again")
	return true
}

// flexibleID accepts a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func (f flexibleID) String() string { return string(f) }

type signonResponse struct {
	Token   string     `json:"token"`
	UserID  flexibleID `json:"userId"`
	InboxID string     `json:"inboxId"`
}

func (s *Session) login(ctx context.Context) (*signonResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.loginInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempt := 0
	op := func() (*signonResponse, error) {
		attempt++
		resp, err := s.signon(ctx)
		if err == nil {
			s.metrics.RecordLoginAttempt(ctx, instrumentation.ResultSuccess)
			return resp, nil
		}
		if !retryable(err) {
			s.metrics.RecordLoginAttempt(ctx, instrumentation.ResultFailure)
			return nil, backoff.Permanent(err)
		}
		if uint(attempt) >= s.loginAttempts {
			s.metrics.RecordLoginAttempt(ctx, instrumentation.ResultFailure)
		} else {
			s.metrics.RecordLoginAttempt(ctx, instrumentation.ResultRetry)
		}
		return nil, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.loginAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.logger.Warn("login attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				logging.Err(err))
		}),
	)
}

func (s *Session) signon(ctx context.Context) (*signonResponse, error) {
	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceUnofficial, instrumentation.OperationLogin, signonPath)
	defer span.End()

	query := url.Values{"wc": {"true"}, "remember": {"true"}}
	start := time.Now()
	raw, status, err := s.send(ctx, http.MethodPost, signonPath, map[string]string{
		"username": s.username,
		"password": s.password,
	}, query, "")
	s.metrics.RecordAPICall(ctx, instrumentation.ServiceUnofficial, instrumentation.OperationLogin, status, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	var resp signonResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "decode login response")
	}
	if resp.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	instrumentation.SetSpanSuccess(span)
	return &resp, nil
}

// CallAPI performs an authenticated request against endpoint (a path such
// as "/api/v2/batch/check/0"). The decoded body is returned raw; it is nil
// for 204 and empty responses. A 401 on a cached session triggers one fresh
// login and one replay.
func (s *Session) CallAPI(ctx context.Context, method, endpoint string, body any, query url.Values) (json.RawMessage, error) {
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceUnofficial, instrumentation.OperationCall, endpoint)
	defer span.End()

	raw, err := s.callOnce(ctx, method, endpoint, body, query)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			if rejected := apiErr.token; rejected != "" && s.invalidate(ctx, rejected) {
				raw, err = s.callOnce(ctx, method, endpoint, body, query)
			}
		}
	}
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return raw, nil
}

func (s *Session) callOnce(ctx context.Context, method, endpoint string, body any, query url.Values) (json.RawMessage, error) {
	token, err := s.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, status, err := s.send(ctx, method, endpoint, body, query, token)
	s.metrics.RecordAPICall(ctx, instrumentation.ServiceUnofficial, operationFor(method), status, time.Since(start))
	if err != nil {
		s.logger.Debug("unofficial api call failed",
			logging.Endpoint(endpoint),
			slog.String("method", method),
			slog.Int(logging.KeyStatus, status),
			logging.Err(err))
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

func operationFor(method string) string {
	switch method {
	case http.MethodGet:
		return instrumentation.OperationGet
	case http.MethodDelete:
		return instrumentation.OperationDelete
	case http.MethodPut:
		return instrumentation.OperationUpdate
	}
	return instrumentation.OperationCall
}

// send issues one request. token is attached as the session cookie when
// set. Errors are *APIError with the token recorded for 401 handling.
func (s *Session) send(ctx context.Context, method, endpoint string, body any, query url.Values, token string) ([]byte, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, errors.Wrap(err, "rate limit")
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, 0, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	u := s.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("x-device", deviceHeader(s.deviceID))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionToken, Value: token})
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, &APIError{Method: method, Endpoint: endpoint, Err: err, token: token}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Method: method, Endpoint: endpoint, Err: err, token: token}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Method:     method,
			Endpoint:   endpoint,
			token:      token,
		}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, nil
	}
	return raw, resp.StatusCode, nil
}
