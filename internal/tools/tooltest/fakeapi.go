package tooltest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Response is a canned reply of FakeAPI. Status 0 means 200.
type Response struct {
	Status int
	Body   string
}

// OK returns a 200 response with body.
func OK(body string) Response { return Response{Body: body} }

// Request is a request received by FakeAPI.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// FakeAPI answers requests from a route table keyed by "METHOD /path".
// Unknown routes get a 404.
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Response
	requests []Request
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t *testing.T, routes map[string]Response) *FakeAPI {
	t.Helper()
	f := &FakeAPI{routes: routes}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
	})
	resp, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		resp = Response{Status: http.StatusNotFound, Body: `{"errorMessage":"not found"}`}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

// Set replaces the response of a route.
func (f *FakeAPI) Set(route string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = resp
}

// Requests returns the requests received so far.
func (f *FakeAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// RequestsTo returns the requests received for route.
func (f *FakeAPI) RequestsTo(route string) []Request {
	var out []Request
	for _, r := range f.Requests() {
		if r.Method+" "+r.Path == route {
			out = append(out, r)
		}
	}
	return out
}
