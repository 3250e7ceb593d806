package unofficial

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Cookie string
	Device string
	Agent  string
	Body   string
}

// fakeWeb is a scripted stand-in for the web API.
type fakeWeb struct {
	t *testing.T

	mu       sync.Mutex
	requests []seenRequest
	signons  int
	// signonStatus is consumed one entry per login attempt; once empty
	// logins succeed.
	signonStatus []int
	token        string
	routes       map[string]http.HandlerFunc
}

func newFakeWeb(t *testing.T) (*fakeWeb, *httptest.Server) {
	t.Helper()
	f := &fakeWeb{t: t, token: "session-token", routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeWeb) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	cookie := ""
	if c, err := r.Cookie("t"); err == nil {
		cookie = c.Value
	}

	f.mu.Lock()
	f.requests = append(f.requests, seenRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Cookie: cookie,
		Device: r.Header.Get("x-device"),
		Agent:  r.Header.Get("User-Agent"),
		Body:   string(body),
	})

	if r.URL.Path == signonPath {
		f.signons++
		status := http.StatusOK
		if len(f.signonStatus) > 0 {
			status = f.signonStatus[0]
			f.signonStatus = f.signonStatus[1:]
		}
		token := f.token
		f.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"errorCode":"scripted"}`))
			return
		}
		writeJSON(w, map[string]any{"token": token, "userId": 115085635, "inboxId": "inbox115085635"})
		return
	}

	h, ok := f.routes[r.Method+" "+r.URL.Path]
	token := f.token
	f.mu.Unlock()

	if cookie != token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorCode":"user_not_sign_on"}`))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func (f *fakeWeb) route(key string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = h
}

func (f *fakeWeb) respond(key string, v any) {
	f.route(key, func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, v) })
}

func (f *fakeWeb) signonCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signons
}

// bodiesFor returns the request bodies sent to method+path.
func (f *fakeWeb) bodiesFor(method, path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r.Body)
		}
	}
	return out
}

func (f *fakeWeb) lastFor(method, path string) seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method && f.requests[i].Path == path {
			return f.requests[i]
		}
	}
	f.t.Fatalf("no request %s %s", method, path)
	return seenRequest{}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestSession(t *testing.T, srv *httptest.Server, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithLoginRetry(DefaultLoginAttempts, time.Millisecond),
		WithRateLimit(1000, 1000),
	}
	s, err := NewSession("user@example.com", "secret", append(base, opts...)...)
	require.NoError(t, err)
	return s
}
