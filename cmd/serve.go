package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/resources"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/project_tools"
	"github.com/teemow/ticktick-mcp/internal/tools/task_tools"
	"github.com/teemow/ticktick-mcp/internal/tools/unofficial_tools"
)

// Environment variables read by serve in addition to the credential
// variables handled by the config package.
const (
	envTransport      = "MCP_TRANSPORT"
	envPort           = "PORT"
	envSettingsFile   = "TICKTICK_MCP_CONFIG"
	envReadOnly       = "TICKTICK_MCP_READ_ONLY"
	envDebug          = "TICKTICK_MCP_DEBUG"
	envConfigDir      = "TICKTICK_CONFIG_DIR"
	envMetricsEnabled = "METRICS_ENABLED"
	envMetricsAddr    = "METRICS_ADDR"
)

const (
	defaultTransport = server.TransportStdio
	defaultHTTPAddr  = ":8000"

	metricsStartupTimeout = 5 * time.Second
)

// serveOptions is the fully resolved serve configuration.
type serveOptions struct {
	Transport          string
	HTTPAddr           string
	ReadOnly           bool
	Debug              bool
	MetricsEnabled     bool
	MetricsAddr        string
	DotenvDir          string
	ConfigDir          string
	TokenStore         string
	TrustCachedSession *bool
}

func newServeCmd() *cobra.Command {
	var (
		flags        serveOptions
		trustCached  bool
		settingsFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing TickTick tools.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP, with the OAuth routes on the same port
  - streamable-http: Streamable HTTP, with the OAuth routes on the same port

Every flag falls back to its environment variable, then to the YAML settings
file given with --config, then to its default.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("config") {
				settingsFile = os.Getenv(envSettingsFile)
			}
			settings, err := config.LoadSettings(settingsFile)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			if cmd.Flags().Changed("trust-cached-session") {
				flags.TrustCachedSession = &trustCached
			}

			opts, err := resolveServeOptions(flags, cmd.Flags().Changed, os.Getenv, settings)
			if err != nil {
				return err
			}
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&settingsFile, "config", "", "YAML settings file. Can also use TICKTICK_MCP_CONFIG env var.")
	cmd.Flags().StringVar(&flags.Transport, "transport", defaultTransport, "Transport type: stdio, sse or streamable-http. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().StringVar(&flags.HTTPAddr, "http-addr", defaultHTTPAddr, "HTTP server address (for sse and streamable-http transports). PORT env var sets :PORT.")
	cmd.Flags().BoolVar(&flags.ReadOnly, "read-only", false, "Register only tools that do not modify TickTick data. Can also use TICKTICK_MCP_READ_ONLY env var.")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging. Can also use TICKTICK_MCP_DEBUG env var.")
	cmd.Flags().StringVar(&flags.DotenvDir, "dotenv-dir", "", "Directory holding the .env fallback (default: config dir). Can also use TICKTICK_DOTENV_DIR env var.")
	cmd.Flags().StringVar(&flags.ConfigDir, "config-dir", "", "Directory holding the token caches (default: ~/.config/ticktick-mcp). Can also use TICKTICK_CONFIG_DIR env var.")
	cmd.Flags().StringVar(&flags.TokenStore, "token-store", "", "Where the access token is kept: file or keyring. Can also use TICKTICK_TOKEN_STORE env var.")
	cmd.Flags().BoolVar(&trustCached, "trust-cached-session", false, "Reuse the cached web API session token without logging in first. Can also use TICKTICK_TRUST_CACHED_SESSION env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&flags.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&flags.MetricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// resolveServeOptions applies flag > environment > settings file > default
// to every serve option. changed reports whether a flag was set explicitly.
func resolveServeOptions(flags serveOptions, changed func(string) bool, getenv func(string) string, settings *config.Settings) (serveOptions, error) {
	if settings == nil {
		settings = &config.Settings{}
	}

	var (
		opts serveOptions
		err  error
	)

	opts.Transport = pickString(changed("transport"), flags.Transport, getenv(envTransport), settings.Transport, defaultTransport)
	switch opts.Transport {
	case server.TransportStdio, server.TransportSSE, server.TransportStreamableHTTP:
	default:
		return opts, fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", opts.Transport)
	}

	portAddr := ""
	if port := getenv(envPort); port != "" {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return opts, fmt.Errorf("invalid %s %q: %w", envPort, port, err)
		}
		portAddr = ":" + port
	}
	opts.HTTPAddr = pickString(changed("http-addr"), flags.HTTPAddr, portAddr, settings.HTTPAddr, defaultHTTPAddr)

	if opts.ReadOnly, err = pickBool(changed("read-only"), flags.ReadOnly, envReadOnly, getenv, settings.ReadOnly, false); err != nil {
		return opts, err
	}
	if opts.Debug, err = pickBool(changed("debug"), flags.Debug, envDebug, getenv, settings.Debug, false); err != nil {
		return opts, err
	}
	if opts.MetricsEnabled, err = pickBool(changed("metrics-enabled"), flags.MetricsEnabled, envMetricsEnabled, getenv, settings.EnableMetrics, true); err != nil {
		return opts, err
	}
	opts.MetricsAddr = pickString(changed("metrics-addr"), flags.MetricsAddr, getenv(envMetricsAddr), settings.MetricsAddr, server.DefaultMetricsAddr)

	// Empty values leave the config package defaults in place.
	opts.DotenvDir = pickString(changed("dotenv-dir"), flags.DotenvDir, getenv(config.EnvDotenvDir), settings.DotenvDir, "")
	opts.ConfigDir = pickString(changed("config-dir"), flags.ConfigDir, getenv(envConfigDir), settings.ConfigDir, "")
	opts.TokenStore = pickString(changed("token-store"), flags.TokenStore, getenv(config.EnvTokenStore), settings.TokenStore, "")

	switch {
	case flags.TrustCachedSession != nil:
		opts.TrustCachedSession = flags.TrustCachedSession
	case getenv(config.EnvTrustCachedSession) != "":
		// Resolve parses the environment variable itself.
	case settings.TrustCachedSession != nil:
		opts.TrustCachedSession = settings.TrustCachedSession
	}

	return opts, nil
}

func pickString(flagSet bool, flagValue, envValue, fileValue, def string) string {
	switch {
	case flagSet:
		return flagValue
	case envValue != "":
		return envValue
	case fileValue != "":
		return fileValue
	default:
		return def
	}
}

func pickBool(flagSet bool, flagValue bool, envKey string, getenv func(string) string, fileValue *bool, def bool) (bool, error) {
	if flagSet {
		return flagValue, nil
	}
	if v := getenv(envKey); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("invalid %s value %q (expected true/false): %w", envKey, v, err)
		}
		return parsed, nil
	}
	if fileValue != nil {
		return *fileValue, nil
	}
	return def, nil
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the MCP protocol in stdio mode, so logs always go to stderr.
	logger := logging.NewLogger(os.Stderr, opts.Debug)
	slog.SetDefault(logger)

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigDir:          opts.ConfigDir,
		DotenvDir:          opts.DotenvDir,
		TokenStore:         opts.TokenStore,
		TrustCachedSession: opts.TrustCachedSession,
	})
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			logger.Error("cannot start without OAuth client credentials", logging.Err(err))
		}
		return fmt.Errorf("failed to resolve configuration: %w", err)
	}
	logger.Info("configuration resolved",
		slog.String("deployment_mode", string(cfg.Mode)),
		slog.String("token_store", cfg.TokenStore().String()),
		slog.Bool("unofficial_configured", cfg.UnofficialConfigured()),
		slog.Bool("inbox_configured", cfg.InboxConfigured()))

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.Transport != server.TransportStdio && opts.MetricsEnabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(opts.MetricsAddr, provider, logger)
		if err != nil {
			return err
		}
	}

	ctxOpts := []server.ContextOption{server.WithLogger(logger)}
	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
		ctxOpts = append(ctxOpts,
			server.WithMetrics(metrics),
			server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)),
		)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, ctxOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}

	tracker := server.NewSessionTracker(server.DefaultSessionIdleTimeout, metrics, logger)
	defer func() {
		tracker.Stop()
		// Shutdown metrics server first
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("ticktick-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithHooks(tracker.Hooks()),
	)

	if opts.ReadOnly {
		logger.Info("starting server in read-only mode, write tools are not registered")
	}

	if err := registerAllTools(mcpSrv, serverContext, opts.ReadOnly); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch opts.Transport {
	case server.TransportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runHTTPServer(shutdownCtx, mcpSrv, serverContext, opts.Transport, opts.HTTPAddr)
	}
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan string, 1)
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// Wait for metrics server to be ready or fail
	select {
	case bound := <-metricsReady:
		logger.Info("metrics server started", slog.String("addr", bound))
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
	return metricsServer, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers the official and unofficial tool groups and
// the account resources.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Project tools",
			register: func() error {
				return project_tools.RegisterProjectTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Task tools",
			register: func() error {
				return task_tools.RegisterTaskTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Unofficial tools",
			register: func() error {
				return unofficial_tools.RegisterUnofficialTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Account Resources",
			register: func() error {
				return resources.RegisterAccountResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, transport, addr string) error {
	cfg := sc.Config()
	logger := sc.Logger()

	oauth := server.NewOAuthHandler(sc, ticktick.OAuthConfig(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI))
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, oauth, transport)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	if sc.Status().OfficialAuthenticated {
		logger.Info("official API authenticated")
	} else {
		logger.Warn("official API not authenticated, open /oauth/start to authorize", slog.String("addr", addr))
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
