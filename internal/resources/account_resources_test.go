package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/tooltest"
)

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func decode(t *testing.T, contents []mcp.ResourceContents, v any) {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok, "unexpected contents type %T", contents[0])
	assert.Equal(t, "application/json", text.MIMEType)
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}

func TestRegisterAccountResources(t *testing.T) {
	sc := tooltest.ServerContext(t, tooltest.Config(t))
	require.NoError(t, RegisterAccountResources(tooltest.MCPServer(), sc))
}

func TestStatusResource(t *testing.T) {
	cfg := tooltest.Config(t)
	cfg.AccessToken = "token"
	cfg.UserID = "42"
	sc := tooltest.ServerContext(t, cfg)

	contents, err := handleStatus(readRequest(StatusURI), sc)
	require.NoError(t, err)

	var status map[string]any
	decode(t, contents, &status)
	assert.Equal(t, StatusURI, contents[0].(*mcp.TextResourceContents).URI)
	assert.Equal(t, true, status["official_authenticated"])
	assert.Equal(t, false, status["unofficial_configured"])
	assert.Equal(t, server.UnofficialNotConfigured, status["unofficial_state"])
	assert.Equal(t, true, status["inbox_configured"])
	assert.Equal(t, "local", status["deployment_mode"])
}

func TestProjectsResource(t *testing.T) {
	api := tooltest.NewFakeAPI(t, map[string]tooltest.Response{
		"GET /project": tooltest.OK(`[{"id":"p1","name":"Work"},{"id":"p2","name":"Home"}]`),
	})
	cfg := tooltest.Config(t)
	cfg.AccessToken = "token"
	sc := tooltest.ServerContext(t, cfg, server.WithOfficialOptions(ticktick.WithBaseURL(api.URL)))

	contents, err := handleProjects(context.Background(), readRequest(ProjectsURI), sc)
	require.NoError(t, err)

	var projects []ticktick.Project
	decode(t, contents, &projects)
	require.Len(t, projects, 2)
	assert.Equal(t, "Work", projects[0].Name)
}

func TestProjectsResource_NotAuthenticated(t *testing.T) {
	sc := tooltest.ServerContext(t, tooltest.Config(t))

	_, err := handleProjects(context.Background(), readRequest(ProjectsURI), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ticktick.ErrNotAuthenticated)
}
