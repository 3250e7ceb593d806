package project_tools

import (
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/tooltest"
)

func setup(t *testing.T, userID string, routes map[string]tooltest.Response) (*mcpserver.MCPServer, *tooltest.FakeAPI) {
	t.Helper()
	if routes == nil {
		routes = map[string]tooltest.Response{}
	}
	api := tooltest.NewFakeAPI(t, routes)

	cfg := tooltest.Config(t)
	cfg.AccessToken = "token"
	cfg.UserID = userID
	sc := tooltest.ServerContext(t, cfg, server.WithOfficialOptions(ticktick.WithBaseURL(api.URL)))

	s := tooltest.MCPServer()
	require.NoError(t, RegisterProjectTools(s, sc, false))
	return s, api
}

func TestRegisterProjectTools_ReadOnly(t *testing.T) {
	sc := tooltest.ServerContext(t, tooltest.Config(t))
	s := tooltest.MCPServer()
	require.NoError(t, RegisterProjectTools(s, sc, true))

	assert.ElementsMatch(t, []string{
		"ticktick_list_projects",
		"ticktick_get_project",
		"ticktick_get_project_with_tasks",
		"ticktick_get_inbox_tasks",
	}, tooltest.ToolNames(s))
}

func TestProjectTools_NotAuthenticated(t *testing.T) {
	sc := tooltest.ServerContext(t, tooltest.Config(t))
	s := tooltest.MCPServer()
	require.NoError(t, RegisterProjectTools(s, sc, false))

	env := tooltest.RequireError(t, tooltest.Call(t, s, "ticktick_list_projects", nil))
	assert.Equal(t, "Not authenticated. Please complete OAuth flow at /oauth/start", env["error"])
	assert.NotContains(t, env, "status_code")
}

func TestListProjects(t *testing.T) {
	s, _ := setup(t, "", map[string]tooltest.Response{
		"GET /project": tooltest.OK(`[{"id":"p1","name":"Work","color":"#F18181","viewMode":"list","kind":"TASK","sortOrder":5},{"id":"p2","name":"Home"}]`),
	})

	result := tooltest.Call(t, s, "ticktick_list_projects", nil)
	tooltest.RequireSuccess(t, result)

	got := tooltest.Object(t, result)
	assert.Equal(t, 2.0, got["count"])
	projects := got["projects"].([]any)
	assert.Equal(t, map[string]any{
		"id": "p1", "name": "Work", "color": "#F18181", "viewMode": "list", "kind": "TASK", "sortOrder": 5.0,
	}, projects[0])
	assert.Equal(t, map[string]any{
		"id": "p2", "name": "Home", "color": nil, "viewMode": nil, "kind": nil, "sortOrder": 0.0,
	}, projects[1])
}

func TestGetProject_APIError(t *testing.T) {
	s, _ := setup(t, "", nil)

	env := tooltest.RequireError(t, tooltest.Call(t, s, "ticktick_get_project", map[string]any{"project_id": "missing"}))
	assert.Equal(t, 404.0, env["status_code"])
	assert.Contains(t, env["error"], "404")
}

func TestGetProject_MissingArgument(t *testing.T) {
	s, api := setup(t, "", nil)

	env := tooltest.RequireError(t, tooltest.Call(t, s, "ticktick_get_project", map[string]any{}))
	assert.Equal(t, "project_id is required", env["error"])
	assert.Empty(t, api.Requests())
}

func TestGetProjectWithTasks(t *testing.T) {
	s, _ := setup(t, "", map[string]tooltest.Response{
		"GET /project/p1/data": tooltest.OK(`{"project":{"id":"p1","name":"Work"},"tasks":[{"id":"t1","projectId":"p1","title":"A","priority":0,"status":0}]}`),
	})

	result := tooltest.Call(t, s, "ticktick_get_project_with_tasks", map[string]any{"project_id": "p1"})
	tooltest.RequireSuccess(t, result)

	got := tooltest.Object(t, result)
	assert.Equal(t, 1.0, got["task_count"])
	assert.Equal(t, "Work", got["project"].(map[string]any)["name"])
	assert.Equal(t, "t1", got["tasks"].([]any)[0].(map[string]any)["id"])
}

func TestGetInboxTasks(t *testing.T) {
	t.Run("without user id", func(t *testing.T) {
		s, api := setup(t, "", nil)

		env := tooltest.RequireError(t, tooltest.Call(t, s, "ticktick_get_inbox_tasks", nil))
		assert.Equal(t, "TICKTICK_USER_ID not set. Cannot access Inbox without user ID.", env["error"])
		assert.Empty(t, api.Requests())
	})

	t.Run("with user id", func(t *testing.T) {
		s, api := setup(t, "115085635", map[string]tooltest.Response{
			"GET /project/inbox115085635/data": tooltest.OK(`{"project":{"id":"inbox115085635","name":"Inbox"},"tasks":[]}`),
		})

		result := tooltest.Call(t, s, "ticktick_get_inbox_tasks", nil)
		tooltest.RequireSuccess(t, result)

		got := tooltest.Object(t, result)
		assert.Equal(t, "inbox115085635", got["inbox_id"])
		assert.Equal(t, []any{}, got["tasks"])
		assert.Equal(t, 0.0, got["task_count"])
		assert.Len(t, api.RequestsTo("GET /project/inbox115085635/data"), 1)
	})
}

func TestCreateProject(t *testing.T) {
	s, api := setup(t, "", map[string]tooltest.Response{
		"POST /project": tooltest.OK(`{"id":"p9","name":"New","color":"#00FF00","viewMode":"kanban"}`),
	})

	result := tooltest.Call(t, s, "ticktick_create_project", map[string]any{
		"name":      "New",
		"color":     "#00FF00",
		"view_mode": "kanban",
	})
	tooltest.RequireSuccess(t, result)

	got := tooltest.Object(t, result)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "p9", got["project"].(map[string]any)["id"])

	reqs := api.RequestsTo("POST /project")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"name":"New","color":"#00FF00","viewMode":"kanban"}`, reqs[0].Body)
}

func TestUpdateProject_SendsOnlyGivenFields(t *testing.T) {
	s, api := setup(t, "", map[string]tooltest.Response{
		"POST /project/p1": tooltest.OK(`{"id":"p1","name":"Renamed"}`),
	})

	result := tooltest.Call(t, s, "ticktick_update_project", map[string]any{"project_id": "p1", "name": "Renamed"})
	tooltest.RequireSuccess(t, result)

	reqs := api.RequestsTo("POST /project/p1")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"name":"Renamed"}`, reqs[0].Body)
}

func TestDeleteProject(t *testing.T) {
	s, api := setup(t, "", map[string]tooltest.Response{"DELETE /project/p1": tooltest.OK("")})

	result := tooltest.Call(t, s, "ticktick_delete_project", map[string]any{"project_id": "p1"})
	tooltest.RequireSuccess(t, result)

	assert.Equal(t, map[string]any{"success": true, "message": "Project p1 deleted successfully"}, tooltest.Object(t, result))
	assert.Len(t, api.Requests(), 1)
}
