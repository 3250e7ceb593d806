package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Environment variables read by Resolve.
const (
	EnvClientID           = "TICKTICK_CLIENT_ID"
	EnvClientSecret       = "TICKTICK_CLIENT_SECRET"
	EnvRedirectURI        = "TICKTICK_REDIRECT_URI"
	EnvAccessToken        = "TICKTICK_ACCESS_TOKEN"
	EnvOAuthToken         = "TICKTICK_OAUTH_TOKEN"
	EnvUserID             = "TICKTICK_USER_ID"
	EnvUsername           = "TICKTICK_USERNAME"
	EnvPassword           = "TICKTICK_PASSWORD"
	EnvDotenvDir          = "TICKTICK_DOTENV_DIR"
	EnvTokenStore         = "TICKTICK_TOKEN_STORE"
	EnvTrustCachedSession = "TICKTICK_TRUST_CACHED_SESSION"
)

// File names inside the config directory.
const (
	DotenvFile       = ".env"
	TokenCacheFile   = ".token-cache.json"
	SessionCacheFile = ".token-oauth"
	appDirName       = "ticktick-mcp"
)

// DeploymentMode is derived once at startup from TICKTICK_OAUTH_TOKEN.
type DeploymentMode string

const (
	ModeLocal DeploymentMode = "local"
	ModeCloud DeploymentMode = "cloud"
)

var (
	// ErrMissingCredentials marks the fatal startup error raised when the OAuth
	// client identity cannot be resolved.
	ErrMissingCredentials = errors.New("missing OAuth client credentials")

	// ErrInvalidTokenBlob is returned when TICKTICK_OAUTH_TOKEN is not a token
	// JSON object.
	ErrInvalidTokenBlob = errors.New("invalid TICKTICK_OAUTH_TOKEN")
)

// Config is the resolved, immutable startup configuration. Only the access
// token changes later, and that happens on the server's official session,
// not here.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AccessToken string
	UserID      string

	Username string
	Password string

	Mode DeploymentMode

	ConfigDir        string
	DotenvPath       string
	TokenCachePath   string
	SessionCachePath string

	TokenStoreKind     string
	TrustCachedSession bool
}

// UnofficialConfigured reports whether username and password are available.
func (c *Config) UnofficialConfigured() bool {
	return c.Username != "" && c.Password != ""
}

// InboxConfigured reports whether the Inbox pseudo-project can be addressed.
func (c *Config) InboxConfigured() bool {
	return c.UserID != ""
}

// TokenStore returns the store the official access token is persisted in.
func (c *Config) TokenStore() TokenStore {
	if c.TokenStoreKind == TokenStoreKeyring {
		return NewKeyringStore(KeyringService, KeyringUser)
	}
	return NewFileStore(c.TokenCachePath)
}

// SessionStore returns the file store backing the unofficial session cache.
func (c *Config) SessionStore() *FileStore {
	return NewFileStore(c.SessionCachePath)
}

// ResolveOptions tunes Resolve. Zero values select the defaults.
type ResolveOptions struct {
	// ConfigDir holds the token caches; default ~/.config/ticktick-mcp.
	ConfigDir string
	// DotenvDir holds the .env fallback; default TICKTICK_DOTENV_DIR or ConfigDir.
	DotenvDir string
	// TokenStore is "file" or "keyring"; default TICKTICK_TOKEN_STORE or "file".
	TokenStore string
	// TrustCachedSession overrides TICKTICK_TRUST_CACHED_SESSION when set.
	TrustCachedSession *bool
	// TempDir is the cloud-mode cache root; default os.TempDir().
	TempDir string

	// Getenv replaces os.Getenv in tests.
	Getenv func(string) string
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Resolve produces the startup configuration or an error marked with
// ErrMissingCredentials when the OAuth client identity is incomplete.
func Resolve(opts ResolveOptions) (*Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	dotenvDir := firstNonEmpty(opts.DotenvDir, getenv(EnvDotenvDir), configDir)
	dotenvPath := filepath.Join(dotenvDir, DotenvFile)

	env := newLayeredEnv(getenv)
	if len(env.missing(EnvClientID, EnvClientSecret, EnvRedirectURI)) > 0 {
		if err := env.loadDotenv(dotenvPath); err != nil {
			return nil, err
		}
	}

	if missing := env.missing(EnvClientID, EnvClientSecret, EnvRedirectURI); len(missing) > 0 {
		return nil, errors.Mark(
			errors.Newf("missing required configuration %s: set them in the environment or in %s",
				strings.Join(missing, ", "), dotenvPath),
			ErrMissingCredentials,
		)
	}

	cfg := &Config{
		ClientID:       env.get(EnvClientID),
		ClientSecret:   env.get(EnvClientSecret),
		RedirectURI:    env.get(EnvRedirectURI),
		UserID:         env.get(EnvUserID),
		Username:       env.get(EnvUsername),
		Password:       env.get(EnvPassword),
		Mode:           ModeLocal,
		ConfigDir:      configDir,
		DotenvPath:     dotenvPath,
		TokenCachePath: filepath.Join(configDir, TokenCacheFile),
		TokenStoreKind: firstNonEmpty(opts.TokenStore, env.get(EnvTokenStore), TokenStoreFile),
	}
	cfg.SessionCachePath = filepath.Join(configDir, SessionCacheFile)

	switch cfg.TokenStoreKind {
	case TokenStoreFile, TokenStoreKeyring:
	default:
		return nil, errors.Newf("unknown token store %q (want %q or %q)", cfg.TokenStoreKind, TokenStoreFile, TokenStoreKeyring)
	}

	if opts.TrustCachedSession != nil {
		cfg.TrustCachedSession = *opts.TrustCachedSession
	} else if v := env.get(EnvTrustCachedSession); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", EnvTrustCachedSession)
		}
		cfg.TrustCachedSession = trust
	}

	var blob *oauthTokenBlob
	if raw := env.get(EnvOAuthToken); raw != "" {
		parsed, err := parseOAuthTokenBlob(raw)
		if err != nil {
			return nil, err
		}
		blob = parsed
		cfg.Mode = ModeCloud
		cfg.SessionCachePath = filepath.Join(firstNonEmpty(opts.TempDir, os.TempDir()), appDirName, SessionCacheFile)

		cache := NewTokenCache(blob.AccessToken, blob.RefreshToken, blob.ExpiresIn, now())
		if err := cfg.SessionStore().Save(cache); err != nil {
			return nil, errors.Wrap(err, "seed cloud session cache")
		}
	}

	switch {
	case env.get(EnvAccessToken) != "":
		cfg.AccessToken = env.get(EnvAccessToken)
	case blob != nil && blob.AccessToken != "":
		cfg.AccessToken = blob.AccessToken
	default:
		cached, err := cfg.TokenStore().Load()
		switch {
		case err == nil:
			cfg.AccessToken = cached.AccessToken
		case !errors.Is(err, ErrNoToken):
			return nil, errors.Wrap(err, "load cached access token")
		}
	}

	return cfg, nil
}

// DefaultConfigDir returns ~/.config/ticktick-mcp.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// layeredEnv answers lookups from the process environment first and from a
// dotenv file second.
type layeredEnv struct {
	getenv func(string) string
	dotenv map[string]string
}

func newLayeredEnv(getenv func(string) string) *layeredEnv {
	return &layeredEnv{getenv: getenv}
}

func (e *layeredEnv) get(key string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return e.dotenv[key]
}

func (e *layeredEnv) missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if e.get(k) == "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (e *layeredEnv) loadDotenv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "read dotenv file %s", path)
	}
	e.dotenv = values
	return nil
}

// oauthTokenBlob is the token object carried by TICKTICK_OAUTH_TOKEN.
type oauthTokenBlob struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func parseOAuthTokenBlob(raw string) (*oauthTokenBlob, error) {
	var blob oauthTokenBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode TICKTICK_OAUTH_TOKEN"), ErrInvalidTokenBlob)
	}
	if blob.AccessToken == "" {
		return nil, errors.Mark(errors.New("TICKTICK_OAUTH_TOKEN has no access_token"), ErrInvalidTokenBlob)
	}
	return &blob, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
