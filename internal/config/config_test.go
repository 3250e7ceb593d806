package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFunc(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeDotenv(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotenvFile), []byte(content), 0o600))
}

var identity = map[string]string{
	EnvClientID:     "client",
	EnvClientSecret: "secret",
	EnvRedirectURI:  "http://localhost:8000/oauth/callback",
}

func TestResolve_EnvironmentOnly(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Resolve(ResolveOptions{ConfigDir: dir, Getenv: envFunc(identity)})
	require.NoError(t, err)

	assert.Equal(t, "client", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.Equal(t, filepath.Join(dir, SessionCacheFile), cfg.SessionCachePath)
	assert.Equal(t, filepath.Join(dir, TokenCacheFile), cfg.TokenCachePath)
	assert.Empty(t, cfg.AccessToken)
	assert.False(t, cfg.UnofficialConfigured())
	assert.False(t, cfg.InboxConfigured())
	assert.False(t, cfg.TrustCachedSession)
}

func TestResolve_EnvironmentWinsOverDotenv(t *testing.T) {
	dir := t.TempDir()
	writeDotenv(t, dir, strings.Join([]string{
		"TICKTICK_CLIENT_ID=from-dotenv",
		"TICKTICK_CLIENT_SECRET=dotenv-secret",
		"TICKTICK_REDIRECT_URI=http://dotenv/callback",
		"TICKTICK_USERNAME=jane@example.com",
		"TICKTICK_PASSWORD=hunter2",
	}, "\n"))

	// Client id comes from the environment, the rest is missing there.
	cfg, err := Resolve(ResolveOptions{
		ConfigDir: dir,
		Getenv:    envFunc(map[string]string{EnvClientID: "from-env"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.ClientID)
	assert.Equal(t, "dotenv-secret", cfg.ClientSecret)
	assert.Equal(t, "http://dotenv/callback", cfg.RedirectURI)
	assert.True(t, cfg.UnofficialConfigured())
}

func TestResolve_DotenvNotReadWhenEnvironmentComplete(t *testing.T) {
	dir := t.TempDir()
	writeDotenv(t, dir, "TICKTICK_USERNAME=jane@example.com\nTICKTICK_PASSWORD=hunter2\n")

	cfg, err := Resolve(ResolveOptions{ConfigDir: dir, Getenv: envFunc(identity)})
	require.NoError(t, err)

	assert.False(t, cfg.UnofficialConfigured())
}

func TestResolve_MissingIdentityIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := Resolve(ResolveOptions{
		ConfigDir: dir,
		Getenv:    envFunc(map[string]string{EnvClientID: "client"}),
	})
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Contains(t, err.Error(), EnvClientSecret)
	assert.Contains(t, err.Error(), EnvRedirectURI)
	assert.NotContains(t, err.Error(), EnvClientID+",")
	assert.Contains(t, err.Error(), filepath.Join(dir, DotenvFile))
}

func TestResolve_CustomDotenvDir(t *testing.T) {
	configDir := t.TempDir()
	dotenvDir := t.TempDir()
	writeDotenv(t, dotenvDir, "TICKTICK_CLIENT_ID=a\nTICKTICK_CLIENT_SECRET=b\nTICKTICK_REDIRECT_URI=c\n")

	cfg, err := Resolve(ResolveOptions{
		ConfigDir: configDir,
		Getenv:    envFunc(map[string]string{EnvDotenvDir: dotenvDir}),
	})
	require.NoError(t, err)

	assert.Equal(t, "a", cfg.ClientID)
	assert.Equal(t, filepath.Join(dotenvDir, DotenvFile), cfg.DotenvPath)
}

func TestResolve_AccessTokenPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewFileStore(filepath.Join(dir, TokenCacheFile)).Save(&TokenCache{AccessToken: "from-cache"}))

	with := func(extra map[string]string) map[string]string {
		env := map[string]string{}
		for k, v := range identity {
			env[k] = v
		}
		for k, v := range extra {
			env[k] = v
		}
		return env
	}

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"cache only", with(nil), "from-cache"},
		{"blob beats cache", with(map[string]string{EnvOAuthToken: `{"access_token":"from-blob","expires_in":3600}`}), "from-blob"},
		{"env beats blob", with(map[string]string{
			EnvAccessToken: "from-env",
			EnvOAuthToken:  `{"access_token":"from-blob","expires_in":3600}`,
		}), "from-env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(ResolveOptions{ConfigDir: dir, TempDir: t.TempDir(), Getenv: envFunc(tt.env)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.AccessToken)
		})
	}
}

func TestResolve_CloudModeReroutesSessionCache(t *testing.T) {
	configDir := t.TempDir()
	tempDir := t.TempDir()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	env := map[string]string{EnvOAuthToken: `{"access_token":"abc","refresh_token":"def","expires_in":7200}`}
	for k, v := range identity {
		env[k] = v
	}

	cfg, err := Resolve(ResolveOptions{
		ConfigDir: configDir,
		TempDir:   tempDir,
		Getenv:    envFunc(env),
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	assert.Equal(t, ModeCloud, cfg.Mode)
	assert.Equal(t, filepath.Join(tempDir, "ticktick-mcp", SessionCacheFile), cfg.SessionCachePath)
	assert.False(t, strings.HasPrefix(cfg.SessionCachePath, configDir))

	data, err := os.ReadFile(cfg.SessionCachePath)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "expireTime")
	assert.InDelta(t, float64(now.Unix()+7200), raw["expireTime"], 2)
	assert.Equal(t, "abc", raw["accessToken"])
}

func TestResolve_InvalidTokenBlob(t *testing.T) {
	env := map[string]string{EnvOAuthToken: "not json"}
	for k, v := range identity {
		env[k] = v
	}

	_, err := Resolve(ResolveOptions{ConfigDir: t.TempDir(), TempDir: t.TempDir(), Getenv: envFunc(env)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTokenBlob))
}

func TestResolve_TrustCachedSession(t *testing.T) {
	env := map[string]string{EnvTrustCachedSession: "true"}
	for k, v := range identity {
		env[k] = v
	}

	cfg, err := Resolve(ResolveOptions{ConfigDir: t.TempDir(), Getenv: envFunc(env)})
	require.NoError(t, err)
	assert.True(t, cfg.TrustCachedSession)

	off := false
	cfg, err = Resolve(ResolveOptions{ConfigDir: t.TempDir(), Getenv: envFunc(env), TrustCachedSession: &off})
	require.NoError(t, err)
	assert.False(t, cfg.TrustCachedSession)

	env[EnvTrustCachedSession] = "sometimes"
	_, err = Resolve(ResolveOptions{ConfigDir: t.TempDir(), Getenv: envFunc(env)})
	assert.Error(t, err)
}

func TestResolve_UnknownTokenStore(t *testing.T) {
	_, err := Resolve(ResolveOptions{ConfigDir: t.TempDir(), TokenStore: "vault", Getenv: envFunc(identity)})
	assert.Error(t, err)
}
