package unofficial_tools

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/tools/tooltest"
	"github.com/teemow/ticktick-mcp/internal/unofficial"
)

const (
	signonRoute = "POST /api/v2/user/signon"
	checkRoute  = "GET /api/v2/batch/check/0"
	batchRoute  = "POST /api/v2/batch/task"
)

var fixedNow = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T, routes map[string]tooltest.Response) (*mcpserver.MCPServer, *tooltest.FakeAPI) {
	t.Helper()
	if routes == nil {
		routes = map[string]tooltest.Response{}
	}
	routes[signonRoute] = tooltest.OK(`{"token":"session-token","userId":115085635,"inboxId":"inbox115085635"}`)
	api := tooltest.NewFakeAPI(t, routes)

	cfg := tooltest.Config(t)
	cfg.Username = "user@example.com"
	cfg.Password = "secret"
	sc := tooltest.ServerContext(t, cfg,
		server.WithClock(func() time.Time { return fixedNow }),
		server.WithUnofficialOptions(
			unofficial.WithBaseURL(api.URL),
			unofficial.WithRateLimit(1000, 1000),
			unofficial.WithLoginRetry(1, time.Millisecond),
		),
	)

	s := tooltest.MCPServer()
	require.NoError(t, RegisterUnofficialTools(s, sc, false))
	return s, api
}

// batchBody decodes the body of the only batch/task request.
func batchBody(t *testing.T, api *tooltest.FakeAPI) map[string][]map[string]any {
	t.Helper()
	reqs := api.RequestsTo(batchRoute)
	require.Len(t, reqs, 1)
	var body map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	return body
}

func TestRegisterUnofficialTools_ReadOnly(t *testing.T) {
	sc := tooltest.ServerContext(t, tooltest.Config(t))
	s := tooltest.MCPServer()
	require.NoError(t, RegisterUnofficialTools(s, sc, true))

	assert.ElementsMatch(t, []string{
		"unofficial_get_task_activity",
		"unofficial_get_all_data",
		"unofficial_get_task",
		"unofficial_get_all",
		"unofficial_get_tasks_from_project",
	}, tooltest.ToolNames(s))
}

func TestRegisterUnofficialTools_All(t *testing.T) {
	sc := tooltest.ServerContext(t, tooltest.Config(t))
	s := tooltest.MCPServer()
	require.NoError(t, RegisterUnofficialTools(s, sc, false))

	assert.Len(t, tooltest.ToolNames(s), 17)
}

func TestNotConfigured(t *testing.T) {
	sc := tooltest.ServerContext(t, tooltest.Config(t))
	s := tooltest.MCPServer()
	require.NoError(t, RegisterUnofficialTools(s, sc, false))

	for _, name := range []string{"unofficial_pin_task", "unofficial_get_task", "unofficial_delete_task"} {
		t.Run(name, func(t *testing.T) {
			env := tooltest.RequireError(t, tooltest.Call(t, s, name, map[string]any{"task_id": "t1"}))
			assert.Equal(t, "Unofficial API not configured. Check TICKTICK_USERNAME and TICKTICK_PASSWORD.", env["error"])
			assert.NotContains(t, env, "status_code")
		})
	}
}

func TestPinTask_SendsFullRecord(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1": tooltest.OK(`{"id":"t1","projectId":"p1","title":"Water plants","repeatFlag":"RRULE:FREQ=DAILY","repeatFrom":"1","etag":"e1","sortOrder":-1099511627776}`),
		batchRoute:            tooltest.OK(`{"id2etag":{"t1":"e2"},"id2error":{}}`),
	})

	result := tooltest.Call(t, s, "unofficial_pin_task", map[string]any{"task_id": "t1"})
	tooltest.RequireSuccess(t, result)

	got := tooltest.Object(t, result)
	assert.Equal(t, "Task t1 pinned", got["message"])
	assert.Equal(t, "2026-02-01T09:30:00.000+0000", got["pinnedTime"])

	body := batchBody(t, api)
	assert.Empty(t, body["add"])
	assert.Empty(t, body["delete"])
	require.Len(t, body["update"], 1)
	sent := body["update"][0]
	assert.Equal(t, "2026-02-01T09:30:00.000+0000", sent["pinnedTime"])
	assert.Equal(t, "RRULE:FREQ=DAILY", sent["repeatFlag"])
	assert.Equal(t, "1", sent["repeatFrom"])
	assert.Equal(t, "Water plants", sent["title"])
	assert.Contains(t, api.RequestsTo(batchRoute)[0].Body, `"sortOrder":-1099511627776`)
}

func TestPinTask_RejectedByBatch(t *testing.T) {
	s, _ := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1": tooltest.OK(`{"id":"t1","projectId":"p1"}`),
		batchRoute:            tooltest.OK(`{"id2etag":{},"id2error":{"t1":"EXCEED_QUOTA"}}`),
	})

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_pin_task", map[string]any{"task_id": "t1"}))
	assert.Equal(t, "Pin failed: EXCEED_QUOTA", env["error"])
}

func TestUnpinTask(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1": tooltest.OK(`{"id":"t1","projectId":"p1","pinnedTime":"2026-01-01T00:00:00.000+0000"}`),
		batchRoute:            tooltest.OK(`{"id2etag":{"t1":"e2"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_unpin_task", map[string]any{"task_id": "t1"})
	tooltest.RequireSuccess(t, result)
	assert.Equal(t, "Task t1 unpinned", tooltest.Object(t, result)["message"])
	assert.Equal(t, "-1", batchBody(t, api)["update"][0]["pinnedTime"])
}

func TestGetTask(t *testing.T) {
	s, _ := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1":     tooltest.OK(`{"id":"t1","projectId":"p1","repeatFrom":"0"}`),
		"GET /api/v2/task/broken": {Status: http.StatusInternalServerError, Body: `{"errorCode":"unknown"}`},
	})

	result := tooltest.Call(t, s, "unofficial_get_task", map[string]any{"task_id": "t1"})
	tooltest.RequireSuccess(t, result)
	assert.Equal(t, "0", tooltest.Object(t, result)["repeatFrom"])

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_get_task", map[string]any{"task_id": "nope"}))
	assert.Equal(t, "Task not found: nope", env["error"])

	env = tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_get_task", map[string]any{"task_id": "broken"}))
	assert.Equal(t, 500.0, env["status_code"])
}

const allData = `{
	"syncTaskBean": {"update": [
		{"id":"a","projectId":"p1","title":"open","status":0},
		{"id":"b","projectId":"p1","title":"done","status":2},
		{"id":"c","projectId":"p2","title":"other","status":0}
	]},
	"projectProfiles": [{"id":"p1","name":"Work"},{"id":"p2","name":"Home"}],
	"tags": [{"name":"urgent"}]
}`

func TestGetAllData(t *testing.T) {
	s, _ := setup(t, map[string]tooltest.Response{checkRoute: tooltest.OK(allData)})

	result := tooltest.Call(t, s, "unofficial_get_all_data", nil)
	tooltest.RequireSuccess(t, result)

	got := tooltest.Object(t, result)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, 3.0, got["task_count"])
	assert.Equal(t, 2.0, got["project_count"])
	assert.Equal(t, 1.0, got["tag_count"])
}

func TestGetAll(t *testing.T) {
	tests := []struct {
		objType string
		want    int
	}{
		{objType: "tasks", want: 3},
		{objType: "projects", want: 2},
		{objType: "tags", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.objType, func(t *testing.T) {
			s, _ := setup(t, map[string]tooltest.Response{checkRoute: tooltest.OK(allData)})

			result := tooltest.Call(t, s, "unofficial_get_all", map[string]any{"obj_type": tt.objType})
			tooltest.RequireSuccess(t, result)
			assert.Len(t, tooltest.Array(t, result), tt.want)
		})
	}
}

func TestGetAll_UnknownType(t *testing.T) {
	s, api := setup(t, nil)

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_get_all", map[string]any{"obj_type": "habits"}))
	assert.Equal(t, "Unknown object type: habits", env["error"])
	assert.Empty(t, api.Requests())
}

func TestGetTasksFromProject(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantIDs []any
	}{
		{name: "open only", args: map[string]any{"project_id": "p1"}, wantIDs: []any{"a"}},
		{name: "with completed", args: map[string]any{"project_id": "p1", "include_completed": true}, wantIDs: []any{"a", "b"}},
		{name: "unknown project", args: map[string]any{"project_id": "zzz"}, wantIDs: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := setup(t, map[string]tooltest.Response{checkRoute: tooltest.OK(allData)})

			result := tooltest.Call(t, s, "unofficial_get_tasks_from_project", tt.args)
			tooltest.RequireSuccess(t, result)

			var ids []any
			for _, task := range tooltest.Array(t, result) {
				ids = append(ids, task.(map[string]any)["id"])
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetTaskActivity(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v1/task/activity/t1": tooltest.OK(`[{"action":"T_CREATE"},{"action":"T_DUE"}]`),
	})

	result := tooltest.Call(t, s, "unofficial_get_task_activity", map[string]any{"task_id": "t1", "skip": 20.0})
	tooltest.RequireSuccess(t, result)
	assert.Len(t, tooltest.Array(t, result), 2)

	reqs := api.RequestsTo("GET /api/v1/task/activity/t1")
	require.Len(t, reqs, 1)
	assert.Equal(t, "skip=20", reqs[0].Query)
}

func TestCreateTask_SpecificDates(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		batchRoute: tooltest.OK(`{"id2etag":{"new1":"etag1"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_create_task", map[string]any{
		"title":          "Take medication",
		"project_id":     "p1",
		"specific_dates": []any{"2026-02-10", "2026-02-05"},
		"repeat_flag":    "RRULE:FREQ=DAILY",
	})
	tooltest.RequireSuccess(t, result)

	task := tooltest.Object(t, result)["task"].(map[string]any)
	assert.Equal(t, "new1", task["id"])
	assert.Equal(t, "etag1", task["etag"])

	added := batchBody(t, api)["add"]
	require.Len(t, added, 1)
	assert.Equal(t, "ERULE:NAME=CUSTOM;BYDATE=20260205,20260210", added[0]["repeatFlag"])
	assert.Equal(t, "2026-02-05T05:00:00.000+0000", added[0]["repeatFirstDate"])
	assert.Equal(t, "0", added[0]["repeatFrom"])
	assert.Equal(t, "America/New_York", added[0]["timeZone"])
	assert.Equal(t, true, added[0]["isAllDay"])
	assert.Equal(t, 0.0, added[0]["priority"])
}

func TestCreateTask_RepeatFromCompletion(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		batchRoute: tooltest.OK(`{"id2etag":{"new1":"etag1"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_create_task", map[string]any{
		"title":       "Water plants",
		"project_id":  "p1",
		"due_date":    "2026-02-01T09:00:00",
		"repeat_flag": "RRULE:FREQ=DAILY;INTERVAL=3",
		"repeat_from": "completion date",
		"is_all_day":  false,
		"priority":    3.0,
	})
	tooltest.RequireSuccess(t, result)

	added := batchBody(t, api)["add"][0]
	assert.Equal(t, "RRULE:FREQ=DAILY;INTERVAL=3", added["repeatFlag"])
	assert.Equal(t, "1", added["repeatFrom"])
	assert.Equal(t, false, added["isAllDay"])
	assert.Equal(t, 3.0, added["priority"])
}

func TestCreateTask_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{name: "missing title", args: map[string]any{"project_id": "p1"}, wantErr: "title is required"},
		{name: "bad priority", args: map[string]any{"title": "x", "project_id": "p1", "priority": 4.0}, wantErr: "priority must be one of 0, 1, 3, 5"},
		{name: "bad date", args: map[string]any{"title": "x", "project_id": "p1", "specific_dates": []any{"tomorrow"}}, wantErr: `invalid date "tomorrow", expected YYYY-MM-DD`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, api := setup(t, nil)

			env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_create_task", tt.args))
			assert.Equal(t, tt.wantErr, env["error"])
			assert.Empty(t, api.RequestsTo(batchRoute))
		})
	}
}

func TestUpdateTask_Uncomplete(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1": tooltest.OK(`{"id":"t1","projectId":"p1","title":"Done","status":2,"completedTime":"2026-01-30T10:00:00.000+0000","tags":["a"]}`),
		batchRoute:            tooltest.OK(`{"id2etag":{"t1":"e9"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_update_task", map[string]any{"task_id": "t1", "status": 0.0})
	tooltest.RequireSuccess(t, result)
	assert.Equal(t, "e9", tooltest.Object(t, result)["task"].(map[string]any)["etag"])

	sent := batchBody(t, api)["update"][0]
	assert.Equal(t, 0.0, sent["status"])
	assert.Contains(t, sent, "completedTime")
	assert.Nil(t, sent["completedTime"])
	assert.Equal(t, "Done", sent["title"])
	assert.Equal(t, []any{"a"}, sent["tags"])
}

func TestUpdateTask_InvalidStatus(t *testing.T) {
	s, api := setup(t, nil)

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_update_task", map[string]any{"task_id": "t1", "status": 1.0}))
	assert.Equal(t, "status must be 0 (open) or 2 (completed)", env["error"])
	assert.Empty(t, api.Requests())
}

func TestDeleteTask(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		checkRoute: tooltest.OK(allData),
		batchRoute: tooltest.OK(`{"id2etag":{}}`),
	})

	result := tooltest.Call(t, s, "unofficial_delete_task", map[string]any{"task_id": "c"})
	tooltest.RequireSuccess(t, result)
	assert.Equal(t, "Task c deleted", tooltest.Object(t, result)["message"])

	body := batchBody(t, api)
	require.Len(t, body["delete"], 1)
	assert.Equal(t, map[string]any{"taskId": "c", "projectId": "p2"}, body["delete"][0])

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_delete_task", map[string]any{"task_id": "missing"}))
	assert.Equal(t, "Task not found: missing", env["error"])
}

func TestMoveTask(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1":             tooltest.OK(`{"id":"t1","projectId":"from"}`),
		"POST /api/v2/batch/taskProject": tooltest.OK(`{"id2etag":{"t1":"e2"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_move_task", map[string]any{"task_id": "t1", "to_project_id": "to"})
	tooltest.RequireSuccess(t, result)

	got := tooltest.Object(t, result)
	assert.Equal(t, "from", got["moved_from"])
	assert.Equal(t, "to", got["moved_to"])

	reqs := api.RequestsTo("POST /api/v2/batch/taskProject")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `[{"taskId":"t1","fromProjectId":"from","toProjectId":"to"}]`, reqs[0].Body)
}

func TestMakeSubtask(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/child":        tooltest.OK(`{"id":"child","projectId":"p1"}`),
		"GET /api/v2/task/parent":       tooltest.OK(`{"id":"parent","projectId":"p1"}`),
		"POST /api/v2/batch/taskParent": tooltest.OK(`{"id2etag":{"child":"e1","parent":"e2"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_make_subtask", map[string]any{"child_task_id": "child", "parent_task_id": "parent"})
	tooltest.RequireSuccess(t, result)
	assert.Equal(t, "Task is now a subtask", tooltest.Object(t, result)["message"])

	reqs := api.RequestsTo("POST /api/v2/batch/taskParent")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `[{"taskId":"child","projectId":"p1","parentId":"parent"}]`, reqs[0].Body)
	assert.Empty(t, api.RequestsTo(batchRoute))
}

func TestMakeSubtask_DifferentProjects(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/child":  tooltest.OK(`{"id":"child","projectId":"p1"}`),
		"GET /api/v2/task/parent": tooltest.OK(`{"id":"parent","projectId":"p2"}`),
	})

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_make_subtask", map[string]any{"child_task_id": "child", "parent_task_id": "parent"}))
	assert.Equal(t, "Tasks must be in the same project", env["error"])
	assert.Empty(t, api.RequestsTo("POST /api/v2/batch/taskParent"))
}

func TestMakeSubtask_Self(t *testing.T) {
	s, api := setup(t, nil)

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_make_subtask", map[string]any{"child_task_id": "a", "parent_task_id": "a"}))
	assert.Equal(t, "a task cannot be its own parent", env["error"])
	assert.Empty(t, api.Requests())
}

func TestRemoveSubtask(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/child":        tooltest.OK(`{"id":"child","projectId":"p1","parentId":"parent"}`),
		"POST /api/v2/batch/taskParent": tooltest.OK(`{"id2etag":{"child":"e1"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_remove_subtask", map[string]any{"task_id": "child"})
	tooltest.RequireSuccess(t, result)

	reqs := api.RequestsTo("POST /api/v2/batch/taskParent")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `[{"taskId":"child","projectId":"p1","oldParentId":"parent","parentId":null}]`, reqs[0].Body)
}

func TestSetRepeatFrom(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1": tooltest.OK(`{"id":"t1","projectId":"p1","repeatFlag":"RRULE:FREQ=WEEKLY","repeatFrom":"0"}`),
		batchRoute:            tooltest.OK(`{"id2etag":{"t1":"e2"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_set_repeat_from", map[string]any{"task_id": "t1", "repeat_from": "completion_date"})
	tooltest.RequireSuccess(t, result)

	sent := batchBody(t, api)["update"][0]
	assert.Equal(t, "1", sent["repeatFrom"])
	assert.Equal(t, "RRULE:FREQ=WEEKLY", sent["repeatFlag"])

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_set_repeat_from", map[string]any{"task_id": "t1", "repeat_from": "weekly"}))
	assert.Contains(t, env["error"], "repeat_from must be due_date (0) or completion_date (1)")
}

func TestChecklistItems(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"GET /api/v2/task/t1": tooltest.OK(`{"id":"t1","projectId":"p1","items":[{"id":"i1","title":"Book","status":0,"sortOrder":3}]}`),
		batchRoute:            tooltest.OK(`{"id2etag":{"t1":"e2"}}`),
	})

	result := tooltest.Call(t, s, "unofficial_add_checklist_item", map[string]any{"task_id": "t1", "title": "Pack"})
	tooltest.RequireSuccess(t, result)

	items := batchBody(t, api)["update"][0]["items"].([]any)
	require.Len(t, items, 2)
	added := items[1].(map[string]any)
	assert.Equal(t, "Pack", added["title"])
	assert.Equal(t, 4.0, added["sortOrder"])
	assert.Len(t, added["id"], 24)

	env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_remove_checklist_item", map[string]any{"task_id": "t1", "item_id": "zzz"}))
	assert.Equal(t, "checklist item zzz not found in task t1", env["error"])

	result = tooltest.Call(t, s, "unofficial_remove_checklist_item", map[string]any{"task_id": "t1", "item_id": "i1"})
	tooltest.RequireSuccess(t, result)

	reqs := api.RequestsTo(batchRoute)
	require.Len(t, reqs, 2)
	var body map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[1].Body), &body))
	assert.Empty(t, body["update"][0]["items"])
}

func TestExperimentalAPICall(t *testing.T) {
	s, api := setup(t, map[string]tooltest.Response{
		"POST /api/v2/batch/order": tooltest.OK(`{"ok":true}`),
		"DELETE /api/v2/tag":       tooltest.OK(""),
	})

	result := tooltest.Call(t, s, "unofficial_experimental_api_call", map[string]any{
		"endpoint": "/api/v2/batch/order",
		"method":   "post",
		"data":     []any{map[string]any{"id": "x"}},
		"params":   map[string]any{"limit": 10.0, "all": true},
	})
	tooltest.RequireSuccess(t, result)
	assert.Equal(t, true, tooltest.Object(t, result)["ok"])

	reqs := api.RequestsTo("POST /api/v2/batch/order")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `[{"id":"x"}]`, reqs[0].Body)
	assert.Equal(t, "all=true&limit=10", reqs[0].Query)

	result = tooltest.Call(t, s, "unofficial_experimental_api_call", map[string]any{
		"endpoint": "/api/v2/tag",
		"method":   "DELETE",
		"params":   map[string]any{"name": "old"},
	})
	tooltest.RequireSuccess(t, result)
	assert.Equal(t, map[string]any{"success": true}, tooltest.Object(t, result))
}

func TestExperimentalAPICall_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "missing endpoint", args: map[string]any{"method": "GET"}},
		{name: "endpoint outside api", args: map[string]any{"endpoint": "/oauth/token"}},
		{name: "unknown method", args: map[string]any{"endpoint": "/api/v2/x", "method": "PATCH"}},
		{name: "scalar data", args: map[string]any{"endpoint": "/api/v2/x", "method": "POST", "data": "raw"}},
		{name: "array params", args: map[string]any{"endpoint": "/api/v2/x", "params": []any{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, api := setup(t, nil)

			env := tooltest.RequireError(t, tooltest.Call(t, s, "unofficial_experimental_api_call", tt.args))
			assert.Equal(t, "invalid experimental_api_call arguments", env["error"])
			assert.NotEmpty(t, env["details"])
			assert.Empty(t, api.Requests())
		})
	}
}
