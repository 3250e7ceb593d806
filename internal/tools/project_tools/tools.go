package project_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/common"
)

// projectView is the project shape returned by the tools.
type projectView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     *string `json:"color"`
	ViewMode  *string `json:"viewMode"`
	Kind      *string `json:"kind"`
	SortOrder int64   `json:"sortOrder"`
}

func formatProject(p ticktick.Project) projectView {
	v := projectView{ID: p.ID, Name: p.Name, SortOrder: p.SortOrder}
	if p.Color != "" {
		v.Color = &p.Color
	}
	if p.ViewMode != "" {
		v.ViewMode = &p.ViewMode
	}
	if p.Kind != "" {
		v.Kind = &p.Kind
	}
	return v
}

func formatProjects(projects []ticktick.Project) []projectView {
	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, formatProject(p))
	}
	return out
}

// RegisterProjectTools registers all project tools with the MCP server.
func RegisterProjectTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	r := common.NewRegistrar(s, sc, instrumentation.ServiceOfficial, readOnly)
	h := &handlers{sc: sc}

	r.Read(mcp.NewTool("ticktick_list_projects",
		mcp.WithDescription("List all TickTick projects. The Inbox is not included; use ticktick_get_inbox_tasks for it."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.listProjects)

	r.Read(mcp.NewTool("ticktick_get_project",
		mcp.WithDescription("Get a specific project by ID"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The project ID"),
		),
	), h.getProject)

	r.Read(mcp.NewTool("ticktick_get_project_with_tasks",
		mcp.WithDescription("Get a project with all its open tasks. Use \"inbox{userId}\" as project_id for the Inbox."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The project ID (or \"inbox{userId}\" for the Inbox)"),
		),
	), h.getProjectWithTasks)

	r.Read(mcp.NewTool("ticktick_get_inbox_tasks",
		mcp.WithDescription("Get all open tasks from the Inbox. Requires TICKTICK_USER_ID."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.getInboxTasks)

	r.Write(mcp.NewTool("ticktick_create_project",
		mcp.WithDescription("Create a new project"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("color",
			mcp.Description("Color hex code, e.g. \"#F18181\""),
		),
		mcp.WithString("view_mode",
			mcp.Description("View mode"),
			mcp.Enum("list", "kanban", "timeline"),
		),
		mcp.WithString("kind",
			mcp.Description("Project kind"),
			mcp.Enum("TASK", "NOTE"),
		),
	), h.createProject)

	r.Write(mcp.NewTool("ticktick_update_project",
		mcp.WithDescription("Update an existing project. Only the given fields change."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID to update"),
		),
		mcp.WithString("name",
			mcp.Description("New project name"),
		),
		mcp.WithString("color",
			mcp.Description("New color hex code"),
		),
		mcp.WithString("view_mode",
			mcp.Description("New view mode"),
			mcp.Enum("list", "kanban", "timeline"),
		),
	), h.updateProject)

	r.Write(mcp.NewTool("ticktick_delete_project",
		mcp.WithDescription("Delete a project. WARNING: this permanently deletes the project and all its tasks."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID to delete"),
		),
	), h.deleteProject)

	return nil
}

type handlers struct {
	sc *server.ServerContext
}

func (h *handlers) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	projects, err := client.GetProjects(ctx)
	if err != nil {
		h.sc.Logger().Error("failed to list projects", logging.Err(err))
		return common.ErrorResult(err), nil
	}

	return common.JSONResult(map[string]any{
		"projects": formatProjects(projects),
		"count":    len(projects),
	})
}

func (h *handlers) getProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	project, err := client.GetProject(ctx, projectID)
	if err != nil {
		h.sc.Logger().Error("failed to get project", logging.ProjectID(projectID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(formatProject(*project))
}

func (h *handlers) getProjectWithTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	data, err := client.GetProjectWithData(ctx, projectID)
	if err != nil {
		h.sc.Logger().Error("failed to get project data", logging.ProjectID(projectID), logging.Err(err))
		return common.ErrorResult(err), nil
	}

	tasks := data.Tasks
	if tasks == nil {
		tasks = []ticktick.Task{}
	}
	return common.JSONResult(map[string]any{
		"project":    formatProject(data.Project),
		"tasks":      tasks,
		"task_count": len(tasks),
	})
}

func (h *handlers) getInboxTasks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	inboxID, err := client.InboxID()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	data, err := client.GetInbox(ctx)
	if err != nil {
		h.sc.Logger().Error("failed to get inbox tasks", logging.Err(err))
		return common.ErrorResult(err), nil
	}

	tasks := data.Tasks
	if tasks == nil {
		tasks = []ticktick.Task{}
	}
	return common.JSONResult(map[string]any{
		"inbox_id":   inboxID,
		"tasks":      tasks,
		"task_count": len(tasks),
	})
}

func (h *handlers) createProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	name, err := args.RequiredString("name")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	fields := ticktick.ProjectFields{Name: &name}
	if fields.Color, err = args.OptionalString("color"); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.ViewMode, err = args.OptionalString("view_mode"); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.Kind, err = args.OptionalString("kind"); err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	project, err := client.CreateProject(ctx, fields)
	if err != nil {
		h.sc.Logger().Error("failed to create project", logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"project": formatProject(*project),
	})
}

func (h *handlers) updateProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	var fields ticktick.ProjectFields
	if fields.Name, err = args.OptionalString("name"); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.Color, err = args.OptionalString("color"); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.ViewMode, err = args.OptionalString("view_mode"); err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	project, err := client.UpdateProject(ctx, projectID, fields)
	if err != nil {
		h.sc.Logger().Error("failed to update project", logging.ProjectID(projectID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"project": formatProject(*project),
	})
}

func (h *handlers) deleteProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	if err := client.DeleteProject(ctx, projectID); err != nil {
		h.sc.Logger().Error("failed to delete project", logging.ProjectID(projectID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"message": "Project " + projectID + " deleted successfully",
	})
}
