package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// DefaultStateTTL bounds how long an authorization request stays valid.
const DefaultStateTTL = 10 * time.Minute

// DefaultMaxPendingStates bounds the number of unanswered authorization
// requests. Past it the oldest request is forgotten.
const DefaultMaxPendingStates = 256

// OAuthHandler serves /oauth/start and /oauth/callback.
type OAuthHandler struct {
	sc       *ServerContext
	conf     *oauth2.Config
	stateTTL  time.Duration
	maxStates int
	now       func() time.Time

	mu     sync.Mutex
	states map[string]time.Time
}

// NewOAuthHandler creates the handler. conf is usually
// ticktick.OAuthConfig for the resolved client identity.
func NewOAuthHandler(sc *ServerContext, conf *oauth2.Config) *OAuthHandler {
	return &OAuthHandler{
		sc:        sc,
		conf:      conf,
		stateTTL:  DefaultStateTTL,
		maxStates: DefaultMaxPendingStates,
		now:       time.Now,
		states:    make(map[string]time.Time),
	}
}

// RegisterRoutes adds the OAuth routes to mux.
func (h *OAuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /oauth/start", h.ServeStart)
	mux.HandleFunc("GET /oauth/callback", h.ServeCallback)
}

// newState issues a single-use state value. Expired states are dropped and
// the oldest pending one is evicted once maxStates are outstanding.
func (h *OAuthHandler) newState() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for s, exp := range h.states {
		if now.After(exp) {
			delete(h.states, s)
		}
	}
	for h.maxStates > 0 && len(h.states) >= h.maxStates {
		oldest, oldestExp := "", time.Time{}
		for s, exp := range h.states {
			if oldest == "" || exp.Before(oldestExp) {
				oldest, oldestExp = s, exp
			}
		}
		delete(h.states, oldest)
	}
	state := uuid.NewString()
	h.states[state] = now.Add(h.stateTTL)
	return state
}

// consumeState reports whether state was issued and is unexpired. A state
// is accepted at most once.
func (h *OAuthHandler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	exp, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return !h.now().After(exp)
}

// ServeStart redirects to the TickTick consent page.
func (h *OAuthHandler) ServeStart(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, ticktick.AuthURL(h.conf, h.newState()), http.StatusFound)
}

// ServeCallback exchanges the authorization code, persists the token and
// switches the official client over to it.
func (h *OAuthHandler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logger := h.sc.Logger().With(logging.Operation("oauth_callback"))

	if e := q.Get("error"); e != "" {
		logger.Warn("authorization denied", slog.String("error", e))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "authorization denied: " + e})
		return
	}

	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing authorization code"})
		return
	}
	if !h.consumeState(q.Get("state")) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid or expired state"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ticktick.DefaultTimeout)
	defer cancel()

	tok, err := ticktick.Exchange(ctx, h.conf, code)
	if err != nil {
		h.sc.Metrics().RecordOAuthExchange(ctx, instrumentation.ResultFailure)
		logger.Error("token exchange failed", logging.Err(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token exchange failed: " + err.Error()})
		return
	}
	h.sc.Metrics().RecordOAuthExchange(ctx, instrumentation.ResultSuccess)

	if err := h.sc.SaveTokens(tok); err != nil {
		logger.Error("failed to save tokens", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save tokens: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Authentication successful. TickTick tools are now available.",
	})
}
