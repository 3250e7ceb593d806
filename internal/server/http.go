package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/logging"
)

// Transport names.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// MCP endpoint paths.
const (
	SSEEndpoint     = "/sse"
	MessageEndpoint = "/messages/"
	MCPEndpoint     = "/mcp"
)

// HTTPServer serves the MCP protocol over SSE or streamable HTTP together
// with the health, status and OAuth routes on one mux.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	sc         *ServerContext
	oauth      *OAuthHandler
	health     *HealthChecker
	transport  string
	httpServer *http.Server
}

// NewHTTPServer creates the HTTP server for the given transport.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, oauth *OAuthHandler, transport string) (*HTTPServer, error) {
	switch transport {
	case TransportSSE, TransportStreamableHTTP:
	default:
		return nil, errors.Newf("unsupported server type: %s", transport)
	}

	if err := validateHTTPSRequirement(sc.Config().RedirectURI); err != nil {
		sc.Logger().Warn("OAuth redirect URI is not secure", logging.Err(err))
	}

	return &HTTPServer{
		mcpServer: mcpServer,
		sc:        sc,
		oauth:     oauth,
		health:    NewHealthChecker(sc),
		transport: transport,
	}, nil
}

// Health returns the health checker, to flip readiness during shutdown.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler builds the routed and instrumented handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	s.health.RegisterHealthEndpoints(mux)
	if s.oauth != nil {
		s.oauth.RegisterRoutes(mux)
	}

	switch s.transport {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint(SSEEndpoint),
			mcpserver.WithMessageEndpoint(MessageEndpoint),
		)
		mux.Handle(SSEEndpoint, sseServer)
		mux.Handle(MessageEndpoint, sseServer)

	case TransportStreamableHTTP:
		mux.Handle(MCPEndpoint, mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath(MCPEndpoint),
		))
	}

	return s.instrumentationMiddleware(mux)
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	// No WriteTimeout: SSE streams stay open.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.sc.Logger().Info("starting HTTP server", "addr", addr, "transport", s.transport)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// instrumentationMiddleware records every request on the HTTP metrics.
func (s *HTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sc == nil || s.sc.Metrics() == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, routeLabel(r.URL.Path), rw.statusCode, time.Since(start))
	})
}

// routeLabel collapses paths to the registered routes so that arbitrary
// request paths do not become metric labels.
func routeLabel(path string) string {
	switch path {
	case "/health", "/healthz", "/readyz", "/status", "/oauth/start", "/oauth/callback", SSEEndpoint, MCPEndpoint:
		return path
	}
	if len(path) >= len(MessageEndpoint) && path[:len(MessageEndpoint)] == MessageEndpoint {
		return MessageEndpoint
	}
	return "other"
}

// validateHTTPSRequirement rejects plain HTTP URLs except for loopback
// hosts (localhost, 127.0.0.1, ::1).
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return errors.New("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return errors.Wrap(err, "invalid base URL")
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return errors.Newf("OAuth requires HTTPS outside of local development (got: %s). Use HTTPS or localhost", baseURL)
		}
	} else if u.Scheme != "https" {
		return errors.Newf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
