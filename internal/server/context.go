package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/unofficial"
)

// Unofficial session states reported by Status besides the session's own.
const (
	UnofficialNotConfigured = "not_configured"
	UnofficialNotStarted    = "not_started"
)

// ServerContext holds the process-wide state shared by all tool handlers:
// the resolved configuration, the official API client and the lazily
// created unofficial session.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg     *config.Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	now     func() time.Time

	officialOpts   []ticktick.Option
	unofficialOpts []unofficial.Option

	mu       sync.RWMutex
	official *ticktick.Client
	shutdown bool

	unofficialMu sync.Mutex
	unofficial   atomic.Pointer[unofficial.Session]
}

// ContextOption configures a ServerContext.
type ContextOption func(*ServerContext)

// WithLogger sets the logger passed down to both API clients.
func WithLogger(l *slog.Logger) ContextOption {
	return func(sc *ServerContext) { sc.logger = l }
}

// WithMetrics records API calls and tool invocations on m.
func WithMetrics(m *instrumentation.Metrics) ContextOption {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the tool audit logger.
func WithAuditLogger(a *instrumentation.AuditLogger) ContextOption {
	return func(sc *ServerContext) { sc.audit = a }
}

// WithOfficialOptions appends options applied to every official client.
func WithOfficialOptions(opts ...ticktick.Option) ContextOption {
	return func(sc *ServerContext) { sc.officialOpts = append(sc.officialOpts, opts...) }
}

// WithUnofficialOptions appends options applied to the unofficial session.
func WithUnofficialOptions(opts ...unofficial.Option) ContextOption {
	return func(sc *ServerContext) { sc.unofficialOpts = append(sc.unofficialOpts, opts...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ContextOption {
	return func(sc *ServerContext) { sc.now = now }
}

// NewServerContext creates the server context. An official client is built
// right away when cfg carries an access token; the unofficial session is
// only created on first use.
func NewServerContext(ctx context.Context, cfg *config.Config, opts ...ContextOption) (*ServerContext, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(sc)
	}

	if cfg.AccessToken != "" {
		client, err := sc.newOfficial(cfg.AccessToken)
		if err != nil {
			cancel()
			return nil, err
		}
		sc.official = client
	} else {
		sc.logger.Warn("no access token available, complete OAuth flow at /oauth/start")
	}

	return sc, nil
}

func (sc *ServerContext) newOfficial(token string) (*ticktick.Client, error) {
	opts := []ticktick.Option{
		ticktick.WithLogger(sc.logger),
		ticktick.WithMetrics(sc.metrics),
	}
	opts = append(opts, sc.officialOpts...)
	return ticktick.NewClient(token, sc.cfg.UserID, opts...)
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the startup configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, possibly nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, possibly nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Official returns the official API client or ticktick.ErrNotAuthenticated
// when no access token is known yet.
func (sc *ServerContext) Official() (*ticktick.Client, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.official == nil {
		return nil, ticktick.ErrNotAuthenticated
	}
	return sc.official, nil
}

// SetAccessToken replaces the official client with one using token.
// Requests already running keep the client they started with.
func (sc *ServerContext) SetAccessToken(token string) error {
	client, err := sc.newOfficial(token)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	sc.official = client
	sc.mu.Unlock()
	sc.logger.Debug("official client replaced", slog.String("token", logging.SanitizeToken(token)))
	return nil
}

// SaveTokens persists an OAuth token and switches the official client to it.
func (sc *ServerContext) SaveTokens(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return errors.New("token has no access token")
	}
	store := sc.cfg.TokenStore()
	cache := config.NewTokenCache(tok.AccessToken, tok.RefreshToken, ticktick.ExpiresIn(tok), sc.now())
	if err := store.Save(cache); err != nil {
		return errors.Wrapf(err, "save token to %s", store)
	}
	if err := sc.SetAccessToken(tok.AccessToken); err != nil {
		return err
	}
	sc.logger.Info("access token saved", slog.String("store", store.String()))
	return nil
}

// Unofficial returns the unofficial session, creating it on first use.
// Creation happens at most once even under concurrent callers.
func (sc *ServerContext) Unofficial() (*unofficial.Session, error) {
	if s := sc.unofficial.Load(); s != nil {
		return s, nil
	}
	if !sc.cfg.UnofficialConfigured() {
		return nil, unofficial.ErrNotConfigured
	}

	sc.unofficialMu.Lock()
	defer sc.unofficialMu.Unlock()

	if s := sc.unofficial.Load(); s != nil {
		return s, nil
	}

	opts := []unofficial.Option{
		unofficial.WithLogger(sc.logger),
		unofficial.WithMetrics(sc.metrics),
		unofficial.WithClock(sc.now),
	}
	if sc.cfg.SessionCachePath != "" {
		opts = append(opts, unofficial.WithSessionCache(sc.cfg.SessionStore(), sc.cfg.TrustCachedSession))
	}
	opts = append(opts, sc.unofficialOpts...)

	s, err := unofficial.NewSession(sc.cfg.Username, sc.cfg.Password, opts...)
	if err != nil {
		return nil, err
	}
	sc.unofficial.Store(s)
	sc.logger.Debug("unofficial session created", logging.UserHash(sc.cfg.Username))
	return s, nil
}

// Status summarizes authentication state for the /status endpoint.
type Status struct {
	OfficialAuthenticated bool   `json:"official_authenticated"`
	UnofficialConfigured  bool   `json:"unofficial_configured"`
	UnofficialState       string `json:"unofficial_state"`
	InboxConfigured       bool   `json:"inbox_configured"`
	DeploymentMode        string `json:"deployment_mode"`
	TokenStore            string `json:"token_store"`
}

// Status reports the current authentication state without contacting the
// vendor.
func (sc *ServerContext) Status() Status {
	sc.mu.RLock()
	official := sc.official != nil
	sc.mu.RUnlock()

	state := UnofficialNotConfigured
	if sc.cfg.UnofficialConfigured() {
		state = UnofficialNotStarted
		if s := sc.unofficial.Load(); s != nil {
			state = s.State()
		}
	}

	return Status{
		OfficialAuthenticated: official,
		UnofficialConfigured:  sc.cfg.UnofficialConfigured(),
		UnofficialState:       state,
		InboxConfigured:       sc.cfg.InboxConfigured(),
		DeploymentMode:        string(sc.cfg.Mode),
		TokenStore:            sc.cfg.TokenStoreKind,
	}
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
