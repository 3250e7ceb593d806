package ticktick

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"
)

// OAuth endpoints of TickTick.
const (
	AuthorizeURL = "https://ticktick.com/oauth/authorize"
	TokenURL     = "https://ticktick.com/oauth/token"
)

// Scopes requested during authorization.
var Scopes = []string{"tasks:read", "tasks:write"}

// OAuthConfig returns the authorization-code flow configuration. The token
// endpoint expects the client credentials in a basic auth header.
func OAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthorizeURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthURL returns the consent page URL carrying state.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token response carried no access token")
	}
	return tok, nil
}

// ExpiresIn returns the lifetime of tok in seconds, or 0 when unknown.
func ExpiresIn(tok *oauth2.Token) int64 {
	if tok == nil {
		return 0
	}
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	if d := time.Until(tok.Expiry).Round(time.Second); d > 0 {
		return int64(d / time.Second)
	}
	return 0
}
