package ticktick

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthURL(t *testing.T) {
	conf := OAuthConfig("cid", "secret", "http://localhost:8000/oauth/callback")
	u, err := url.Parse(AuthURL(conf, "xyz"))
	require.NoError(t, err)

	assert.Equal(t, "ticktick.com", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "tasks:read tasks:write", q.Get("scope"))
	assert.Equal(t, "http://localhost:8000/oauth/callback", q.Get("redirect_uri"))
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	conf := OAuthConfig("cid", "secret", "http://localhost/cb")
	conf.Endpoint.TokenURL = srv.URL

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, srv.Client())
	tok, err := Exchange(ctx, conf, "good")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.InDelta(t, 3600, ExpiresIn(tok), 2)

	_, err = Exchange(ctx, conf, "bad")
	assert.Error(t, err)

	_, err = Exchange(ctx, conf, "")
	assert.Error(t, err)
}

func TestExpiresIn_Nil(t *testing.T) {
	assert.Equal(t, int64(0), ExpiresIn(nil))
	assert.Equal(t, int64(0), ExpiresIn(&oauth2.Token{AccessToken: "x"}))
}
