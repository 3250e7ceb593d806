package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
)

// DefaultSessionIdleTimeout is how long a connected client may stay silent
// before it is forgotten.
const DefaultSessionIdleTimeout = 24 * time.Hour

type sessionInfo struct {
	connected  time.Time
	lastAccess time.Time
}

// SessionTracker keeps track of connected MCP client sessions and feeds the
// active session gauge. TickTick credentials are process-wide, so sessions
// carry no account state.
type SessionTracker struct {
	sessions    map[string]*sessionInfo
	mu          sync.RWMutex
	idleTimeout time.Duration
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	now         func() time.Time

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// NewSessionTracker creates a tracker and starts its idle cleanup loop.
// Stop must be called to release it.
func NewSessionTracker(idleTimeout time.Duration, metrics *instrumentation.Metrics, logger *slog.Logger) *SessionTracker {
	if logger == nil {
		logger = slog.Default()
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}

	t := &SessionTracker{
		sessions:      make(map[string]*sessionInfo),
		idleTimeout:   idleTimeout,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
		cleanupTicker: time.NewTicker(10 * time.Minute),
		cleanupDone:   make(chan struct{}),
	}
	go t.cleanupLoop()
	return t
}

// Hooks returns mcp-go hooks that report session lifecycle to the tracker.
func (t *SessionTracker) Hooks() *mcpserver.Hooks {
	hooks := &mcpserver.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		t.Register(ctx, session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		t.Unregister(ctx, session.SessionID())
	})
	hooks.AddBeforeAny(func(ctx context.Context, _ any, _ mcp.MCPMethod, _ any) {
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			t.Touch(session.SessionID())
		}
	})
	return hooks
}

// Register records a new session.
func (t *SessionTracker) Register(ctx context.Context, sessionID string) {
	t.mu.Lock()
	_, exists := t.sessions[sessionID]
	now := t.now()
	t.sessions[sessionID] = &sessionInfo{connected: now, lastAccess: now}
	t.mu.Unlock()

	if !exists {
		t.metrics.IncrementActiveSessions(ctx)
		t.logger.Debug("client session registered", slog.String("session_id", sessionID))
	}
}

// Unregister forgets a session.
func (t *SessionTracker) Unregister(ctx context.Context, sessionID string) {
	if t.remove(sessionID) {
		t.metrics.DecrementActiveSessions(ctx)
		t.logger.Debug("client session unregistered", slog.String("session_id", sessionID))
	}
}

// Touch marks a session as active. Unknown sessions are ignored.
func (t *SessionTracker) Touch(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if info, ok := t.sessions[sessionID]; ok {
		info.lastAccess = t.now()
	}
}

// Count returns the number of tracked sessions.
func (t *SessionTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// ListSessions returns all tracked session IDs.
func (t *SessionTracker) ListSessions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (t *SessionTracker) remove(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[sessionID]; !ok {
		return false
	}
	delete(t.sessions, sessionID)
	return true
}

// expire drops sessions idle for longer than the timeout and returns how
// many were removed.
func (t *SessionTracker) expire(ctx context.Context) int {
	t.mu.Lock()
	now := t.now()
	expired := 0
	for id, info := range t.sessions {
		if now.Sub(info.lastAccess) > t.idleTimeout {
			delete(t.sessions, id)
			expired++
		}
	}
	t.mu.Unlock()

	for range expired {
		t.metrics.DecrementActiveSessions(ctx)
	}
	return expired
}

func (t *SessionTracker) cleanupLoop() {
	for {
		select {
		case <-t.cleanupTicker.C:
			if n := t.expire(context.Background()); n > 0 {
				t.logger.Info("cleaned up idle sessions", slog.Int("count", n))
			}
		case <-t.cleanupDone:
			return
		}
	}
}

// Stop stops the cleanup loop. It is safe to call more than once.
func (t *SessionTracker) Stop() {
	t.stopOnce.Do(func() {
		t.cleanupTicker.Stop()
		close(t.cleanupDone)
	})
}
