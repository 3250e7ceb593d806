package ticktick

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.Error(w, `{"errorMessage":"not found"}`, http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) handle(route string, status int, body any) {
	f.routes[route] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if s, ok := body.(string); ok {
			_, _ = io.WriteString(w, s)
			return
		}
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, srv *httptest.Server, userID string) *Client {
	t.Helper()
	c, err := NewClient("tok", userID, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient("", "")
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestInboxID(t *testing.T) {
	c, err := NewClient("tok", "115085635")
	require.NoError(t, err)

	id, err := c.InboxID()
	require.NoError(t, err)
	assert.Equal(t, "inbox115085635", id)

	c, err = NewClient("tok", "")
	require.NoError(t, err)
	_, err = c.InboxID()
	assert.True(t, errors.Is(err, ErrUserIDNotConfigured))
}

func TestGetInbox_UsesInboxProjectID(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /project/inbox115085635/data", http.StatusOK, ProjectData{
		Project: Project{ID: "inbox115085635", Name: "Inbox"},
		Tasks:   []Task{{ID: "t1", Title: "Buy milk"}},
	})

	c := newTestClient(t, srv, "115085635")
	data, err := c.GetInbox(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Tasks, 1)
	assert.Equal(t, "Buy milk", data.Tasks[0].Title)
	assert.Equal(t, "Bearer tok", api.last().Auth)
}

func TestGetInbox_WithoutUserIDMakesNoRequest(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv, "")

	_, err := c.GetInbox(context.Background())
	assert.True(t, errors.Is(err, ErrUserIDNotConfigured))
	assert.Empty(t, api.requests)
}

func TestAPIError_CarriesStatusAndBody(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /project/p1", http.StatusForbidden, `{"errorCode":"forbidden"}`)

	c := newTestClient(t, srv, "")
	_, err := c.GetProject(context.Background(), "p1")
	require.Error(t, err)

	code, ok := StatusCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, code)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Body, "forbidden")
	assert.Contains(t, err.Error(), "403")
}

func TestAPIError_TransportFailureHasNoStatus(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(t, srv, "")
	srv.Close()

	_, err := c.GetProjects(context.Background())
	require.Error(t, err)
	code, ok := StatusCodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, 0, code)
}

func TestUpdateTask_SendsOnlySetFields(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /task/t1", http.StatusOK, Task{ID: "t1", ProjectID: "p1", Title: "New"})

	c := newTestClient(t, srv, "")
	task, err := c.UpdateTask(context.Background(), "t1", "p1", TaskFields{Title: Ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", task.Title)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.last().Body), &body))
	assert.Equal(t, map[string]any{"id": "t1", "projectId": "p1", "title": "New"}, body)
}

func TestUpdateTask_EmptyListIsSent(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /task/t1", http.StatusOK, Task{ID: "t1"})

	c := newTestClient(t, srv, "")
	_, err := c.UpdateTask(context.Background(), "t1", "p1", TaskFields{Tags: Ptr([]string{})})
	require.NoError(t, err)
	assert.Contains(t, api.last().Body, `"tags":[]`)
}

func TestCreateTask_Validation(t *testing.T) {
	c, err := NewClient("tok", "")
	require.NoError(t, err)

	_, err = c.CreateTask(context.Background(), "p1", TaskFields{})
	assert.Error(t, err)
	_, err = c.CreateTask(context.Background(), "", TaskFields{Title: Ptr("x")})
	assert.Error(t, err)
}

func TestCompleteAndDelete_AcceptEmptyBodies(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /project/p1/task/t1/complete", http.StatusOK, nil)
	api.handle("DELETE /project/p1/task/t1", http.StatusNoContent, nil)
	api.handle("DELETE /project/p1", http.StatusOK, "")

	c := newTestClient(t, srv, "")
	ctx := context.Background()
	assert.NoError(t, c.CompleteTask(ctx, "p1", "t1"))
	assert.NoError(t, c.DeleteTask(ctx, "p1", "t1"))
	assert.NoError(t, c.DeleteProject(ctx, "p1"))
}

func TestCreateProject(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /project", http.StatusOK, Project{ID: "p9", Name: "Work", Color: "#ff0000"})

	c := newTestClient(t, srv, "")
	p, err := c.CreateProject(context.Background(), ProjectFields{Name: Ptr("Work"), Color: Ptr("#ff0000")})
	require.NoError(t, err)
	assert.Equal(t, "p9", p.ID)
	assert.JSONEq(t, `{"name":"Work","color":"#ff0000"}`, api.last().Body)

	_, err = c.CreateProject(context.Background(), ProjectFields{})
	assert.Error(t, err)
}

func TestGetAllTasks_SkipsFailingProjects(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /project/inbox42/data", http.StatusOK, ProjectData{Tasks: []Task{{ID: "i1"}}})
	api.handle("GET /project", http.StatusOK, []Project{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	api.handle("GET /project/a/data", http.StatusOK, ProjectData{Tasks: []Task{{ID: "a1"}, {ID: "a2"}}})
	api.handle("GET /project/b/data", http.StatusInternalServerError, "boom")
	api.handle("GET /project/c/data", http.StatusOK, ProjectData{Tasks: []Task{{ID: "c1"}}})

	c := newTestClient(t, srv, "42")
	tasks, failures, err := c.GetAllTasks(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"i1", "a1", "a2", "c1"}, ids)
	require.Len(t, failures, 1)
	assert.Equal(t, "b", failures[0].ProjectID)
}

func TestGetAllTasks_NoInboxWithoutUserID(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /project", http.StatusOK, []Project{})

	c := newTestClient(t, srv, "")
	tasks, failures, err := c.GetAllTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)
	assert.Empty(t, failures)
	for _, r := range api.requests {
		assert.False(t, strings.HasPrefix(r.Path, "/project/inbox"))
	}
}

func TestGetAllTasks_ProjectListFailureIsFatal(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /project", http.StatusUnauthorized, "unauthorized")

	c := newTestClient(t, srv, "")
	_, _, err := c.GetAllTasks(context.Background())
	code, ok := StatusCodeOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, code)
}
