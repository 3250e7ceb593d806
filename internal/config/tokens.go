package config

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// TokenCache is the persisted token layout, shared by the official token
// cache and the unofficial session cache. ExpireTime is absolute unix
// seconds; zero means the expiry is unknown.
type TokenCache struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
	ExpireTime   int64  `json:"expireTime"`
}

// NewTokenCache builds a cache entry with ExpireTime = now + expiresIn.
func NewTokenCache(accessToken, refreshToken string, expiresIn int64, now time.Time) *TokenCache {
	c := &TokenCache{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}
	if expiresIn > 0 {
		c.ExpireTime = now.Add(time.Duration(expiresIn) * time.Second).Unix()
	}
	return c
}

// Expired reports whether the entry has a known expiry at or before now.
func (c *TokenCache) Expired(now time.Time) bool {
	return c.ExpireTime > 0 && !now.Before(time.Unix(c.ExpireTime, 0))
}

// legacyTokenCache is the snake_case layout written by older installs.
type legacyTokenCache struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	ExpireTime   float64 `json:"expire_time"`
}

// DecodeTokenCache parses either cache layout.
func DecodeTokenCache(data []byte) (*TokenCache, error) {
	var c TokenCache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "decode token cache")
	}
	if c.AccessToken != "" {
		return &c, nil
	}

	var legacy legacyTokenCache
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, errors.Wrap(err, "decode token cache")
	}
	if legacy.AccessToken == "" {
		return nil, errors.New("token cache has no access token")
	}
	return &TokenCache{
		AccessToken:  legacy.AccessToken,
		RefreshToken: legacy.RefreshToken,
		ExpiresIn:    legacy.ExpiresIn,
		ExpireTime:   int64(legacy.ExpireTime),
	}, nil
}
