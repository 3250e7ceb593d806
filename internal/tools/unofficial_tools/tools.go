package unofficial_tools

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/tools/common"
	"github.com/teemow/ticktick-mcp/internal/unofficial"
)

const (
	repeatFlagDescription = `Recurrence rule in RRULE format, e.g. "RRULE:FREQ=DAILY;INTERVAL=1", "RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR" or "RRULE:FREQ=MONTHLY;BYMONTHDAY=15"`
	repeatFromDescription = `When the next occurrence is calculated: "due_date" (or "0") from the due date, "completion_date" (or "1") from the completion date`
	datesDescription      = `Explicit dates in YYYY-MM-DD format, e.g. ["2026-02-05", "2026-02-10"]. Creates a custom date rule and overrides repeat_flag.`
)

// Object types accepted by unofficial_get_all.
const (
	objTasks    = "tasks"
	objProjects = "projects"
	objTags     = "tags"
)

// RegisterUnofficialTools registers the web API tools with the MCP server.
func RegisterUnofficialTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	r := common.NewRegistrar(s, sc, instrumentation.ServiceUnofficial, readOnly)
	h := &handlers{sc: sc}

	registerReadTools(r, h)
	registerWriteTools(r, h)
	return nil
}

func registerReadTools(r *common.Registrar, h *handlers) {
	r.Read(mcp.NewTool("unofficial_get_task_activity",
		mcp.WithDescription(`Get the activity log of a task: creation, completion, due date changes, repeats and updates.
Entries carry timestamps, before/after values and device info. Action codes include T_CREATE, T_COMPLETE, T_DUE, T_REPEAT and T_UPDATE.`),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithNumber("skip",
			mcp.Description("Number of newest entries to skip, for paging through older activity"),
		),
	), h.getTaskActivity)

	r.Read(mcp.NewTool("unofficial_get_all_data",
		mcp.WithDescription("Get all open tasks, projects and tags in one fresh call, with counts"),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.getAllData)

	r.Read(mcp.NewTool("unofficial_get_task",
		mcp.WithDescription("Get a task by ID without knowing its project. Returns the full record including repeatFrom, pinnedTime and parentId; works for completed tasks too."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
	), h.getTask)

	r.Read(mcp.NewTool("unofficial_get_all",
		mcp.WithDescription("Get all objects of one type, fresh from the API"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("obj_type",
			mcp.Required(),
			mcp.Description("Type of objects to return"),
			mcp.Enum(objTasks, objProjects, objTags),
		),
	), h.getAll)

	r.Read(mcp.NewTool("unofficial_get_tasks_from_project",
		mcp.WithDescription("Get the tasks of a project, fresh from the API"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The project ID"),
		),
		mcp.WithBoolean("include_completed",
			mcp.Description("Also return completed tasks (default: false)"),
		),
	), h.getTasksFromProject)
}

func registerWriteTools(r *common.Registrar, h *handlers) {
	r.Write(mcp.NewTool("unofficial_pin_task",
		mcp.WithDescription("Pin a task to the top of the Today view and its project list"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID to pin"),
		),
	), h.pinTask)

	r.Write(mcp.NewTool("unofficial_unpin_task",
		mcp.WithDescription("Remove a task from the pinned list"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID to unpin"),
		),
	), h.unpinTask)

	r.Write(mcp.NewTool("unofficial_create_task",
		mcp.WithDescription(`Create a task, including recurrence settings the Open API cannot set.

Examples:
  simple: title="Buy groceries", project_id="abc123"
  repeat from completion: due_date="2026-02-01T09:00:00", repeat_flag="RRULE:FREQ=DAILY;INTERVAL=3", repeat_from="completion_date"
  specific dates: specific_dates=["2026-02-05", "2026-02-10", "2026-02-15"]`),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID. Use \"inbox{userId}\" for the Inbox."),
		),
		mcp.WithString("content", mcp.Description("Task content or notes")),
		mcp.WithString("start_date", mcp.Description("Start date, e.g. \"2026-01-31T21:00:00\"")),
		mcp.WithString("due_date", mcp.Description("Due date, e.g. \"2026-01-31T21:00:00\". Required for recurring tasks.")),
		mcp.WithNumber("priority", mcp.Description("Priority: 0=None, 1=Low, 3=Medium, 5=High")),
		mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
		mcp.WithBoolean("is_all_day", mcp.Description("Whether the task is an all-day task (default: true)")),
		mcp.WithString("repeat_flag", mcp.Description(repeatFlagDescription)),
		mcp.WithString("repeat_from", mcp.Description(repeatFromDescription)),
		mcp.WithArray("specific_dates", mcp.Description(datesDescription), mcp.WithStringItems()),
		mcp.WithString("time_zone",
			mcp.Description("Time zone"),
			mcp.DefaultString(unofficial.DefaultTimeZone),
		),
	), h.createTask)

	r.Write(mcp.NewTool("unofficial_update_task",
		mcp.WithDescription(`Update a task, open or completed. The full record is fetched and sent back with the changes applied.

Set status=0 to un-complete a completed task.`),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID to update"),
		),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithString("start_date", mcp.Description("New start date")),
		mcp.WithString("due_date", mcp.Description("New due date")),
		mcp.WithNumber("priority", mcp.Description("New priority: 0=None, 1=Low, 3=Medium, 5=High")),
		mcp.WithNumber("status", mcp.Description("Task status: 0=open, 2=completed")),
		mcp.WithArray("tags", mcp.Description("New tags list, replaces the existing tags"), mcp.WithStringItems()),
		mcp.WithString("repeat_flag", mcp.Description(repeatFlagDescription)),
		mcp.WithString("repeat_from", mcp.Description(repeatFromDescription)),
		mcp.WithArray("specific_dates", mcp.Description(datesDescription), mcp.WithStringItems()),
	), h.updateTask)

	r.Write(mcp.NewTool("unofficial_delete_task",
		mcp.WithDescription("Delete an open task. WARNING: this permanently deletes the task."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID to delete"),
		),
	), h.deleteTask)

	r.Write(mcp.NewTool("unofficial_move_task",
		mcp.WithDescription("Move a task to another project"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID to move"),
		),
		mcp.WithString("to_project_id",
			mcp.Required(),
			mcp.Description("The destination project ID"),
		),
	), h.moveTask)

	r.Write(mcp.NewTool("unofficial_make_subtask",
		mcp.WithDescription("Make one task a true subtask of another. Both tasks must be in the same project; nothing is deleted."),
		mcp.WithString("child_task_id",
			mcp.Required(),
			mcp.Description("The task ID to become a subtask"),
		),
		mcp.WithString("parent_task_id",
			mcp.Required(),
			mcp.Description("The task ID that becomes the parent"),
		),
	), h.makeSubtask)

	r.Write(mcp.NewTool("unofficial_remove_subtask",
		mcp.WithDescription("Detach a subtask from its parent, turning it back into a top-level task"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The subtask ID"),
		),
	), h.removeSubtask)

	r.Write(mcp.NewTool("unofficial_set_repeat_from",
		mcp.WithDescription("Set whether a recurring task repeats from its due date or from its completion date"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The recurring task ID"),
		),
		mcp.WithString("repeat_from",
			mcp.Required(),
			mcp.Description(repeatFromDescription),
		),
	), h.setRepeatFrom)

	r.Write(mcp.NewTool("unofficial_add_checklist_item",
		mcp.WithDescription("Append an open checklist item to a task"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Checklist item title"),
		),
	), h.addChecklistItem)

	r.Write(mcp.NewTool("unofficial_remove_checklist_item",
		mcp.WithDescription("Remove a checklist item from a task"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("The checklist item ID, as listed in the task's items"),
		),
	), h.removeChecklistItem)

	r.Write(mcp.NewTool("unofficial_experimental_api_call",
		mcp.WithDescription(`Make a raw call to the web API, for endpoints no other tool covers.
The response is returned as is. Write calls are not retried.`),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("endpoint",
			mcp.Required(),
			mcp.Description("API path starting with /api/, e.g. \"/api/v2/batch/check/0\""),
		),
		mcp.WithString("method",
			mcp.Description("HTTP method"),
			mcp.Enum("GET", "POST", "PUT", "DELETE"),
			mcp.DefaultString("GET"),
		),
		mcp.WithObject("data",
			mcp.Description("JSON body for POST and PUT. An array is accepted too."),
		),
		mcp.WithObject("params",
			mcp.Description("Query parameters"),
		),
	), h.experimentalAPICall)
}

type handlers struct {
	sc *server.ServerContext
}

func (h *handlers) logger() *slog.Logger {
	return h.sc.Logger()
}

// session returns the web API session or the error result to send back.
func (h *handlers) session() (*unofficial.Session, *mcp.CallToolResult) {
	s, err := h.sc.Unofficial()
	if err != nil {
		return nil, common.ErrorResult(err)
	}
	return s, nil
}

var errPriority = errors.New("priority must be one of 0, 1, 3, 5")

func validPriority(p int) error {
	switch p {
	case 0, 1, 3, 5:
		return nil
	}
	return errPriority
}

func (h *handlers) getTaskActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	skip, err := args.Int("skip", 0)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	if skip < 0 {
		return common.ErrorMessage("skip must not be negative"), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	entries, err := s.TaskActivity(ctx, taskID, skip)
	if err != nil {
		h.logger().Error("failed to get task activity", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	h.logger().Debug("task activity loaded", logging.TaskID(taskID), slog.Int("entries", len(entries)))
	return common.JSONResult(entries)
}

func (h *handlers) pinTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := common.Arguments(request.GetArguments()).RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	pinnedTime, err := s.PinTask(ctx, taskID)
	if err != nil {
		h.logger().Error("failed to pin task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success":    true,
		"message":    "Task " + taskID + " pinned",
		"pinnedTime": pinnedTime,
	})
}

func (h *handlers) unpinTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := common.Arguments(request.GetArguments()).RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	if err := s.UnpinTask(ctx, taskID); err != nil {
		h.logger().Error("failed to unpin task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"message": "Task " + taskID + " unpinned",
	})
}

func (h *handlers) getAllData(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	data, err := s.GetAllData(ctx)
	if err != nil {
		h.logger().Error("failed to get all data", logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success":       true,
		"tasks":         data.Tasks,
		"projects":      data.Projects,
		"tags":          data.Tags,
		"task_count":    len(data.Tasks),
		"project_count": len(data.Projects),
		"tag_count":     len(data.Tags),
	})
}

func (h *handlers) getTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := common.Arguments(request.GetArguments()).RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		if !errors.Is(err, unofficial.ErrTaskNotFound) {
			h.logger().Error("failed to get task", logging.TaskID(taskID), logging.Err(err))
		}
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(task)
}

func (h *handlers) getAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objType, err := common.Arguments(request.GetArguments()).RequiredString("obj_type")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	switch objType {
	case objTasks, objProjects, objTags:
	default:
		return common.ErrorMessage("Unknown object type: %s", objType), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	data, err := s.GetAllData(ctx)
	if err != nil {
		h.logger().Error("failed to get objects", slog.String("obj_type", objType), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	switch objType {
	case objTasks:
		return common.JSONResult(data.Tasks)
	case objProjects:
		return common.JSONResult(data.Projects)
	default:
		return common.JSONResult(data.Tags)
	}
}

func (h *handlers) getTasksFromProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	includeCompleted, err := args.Bool("include_completed", false)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	tasks, err := s.TasksFromProject(ctx, projectID, includeCompleted)
	if err != nil {
		h.logger().Error("failed to get project tasks", logging.ProjectID(projectID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(tasks)
}

func (h *handlers) createTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	nt, err := parseNewTask(args)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.CreateTask(ctx, nt)
	if err != nil {
		h.logger().Error("failed to create task", logging.ProjectID(nt.ProjectID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{"success": true, "task": task})
}

func parseNewTask(args common.Arguments) (unofficial.NewTask, error) {
	var (
		nt  unofficial.NewTask
		err error
	)
	if nt.Title, err = args.RequiredString("title"); err != nil {
		return nt, err
	}
	if nt.ProjectID, err = args.RequiredString("project_id"); err != nil {
		return nt, err
	}
	nt.Content = args.String("content", "")
	nt.StartDate = args.String("start_date", "")
	nt.DueDate = args.String("due_date", "")
	nt.TimeZone = args.String("time_zone", unofficial.DefaultTimeZone)
	nt.RepeatFlag = args.String("repeat_flag", "")
	nt.RepeatFrom = args.String("repeat_from", "")

	if nt.Priority, err = args.Int("priority", 0); err != nil {
		return nt, err
	}
	if err := validPriority(nt.Priority); err != nil {
		return nt, err
	}
	if nt.IsAllDay, err = args.Bool("is_all_day", true); err != nil {
		return nt, err
	}

	tags, err := args.OptionalStringSlice("tags")
	if err != nil {
		return nt, err
	}
	if tags != nil {
		nt.Tags = *tags
	}
	dates, err := args.OptionalStringSlice("specific_dates")
	if err != nil {
		return nt, err
	}
	if dates != nil {
		nt.SpecificDates = *dates
	}
	return nt, nil
}

func (h *handlers) updateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	u, err := parseTaskUpdate(args)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.UpdateTask(ctx, taskID, u)
	if err != nil {
		h.logger().Error("failed to update task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{"success": true, "task": task})
}

func parseTaskUpdate(args common.Arguments) (unofficial.TaskUpdate, error) {
	var (
		u   unofficial.TaskUpdate
		err error
	)
	if u.Title, err = args.OptionalString("title"); err != nil {
		return u, err
	}
	if u.Content, err = args.OptionalString("content"); err != nil {
		return u, err
	}
	if u.StartDate, err = args.OptionalString("start_date"); err != nil {
		return u, err
	}
	if u.DueDate, err = args.OptionalString("due_date"); err != nil {
		return u, err
	}
	if u.RepeatFlag, err = args.OptionalString("repeat_flag"); err != nil {
		return u, err
	}
	if u.RepeatFrom, err = args.OptionalString("repeat_from"); err != nil {
		return u, err
	}
	if u.Priority, err = args.OptionalInt("priority"); err != nil {
		return u, err
	}
	if u.Priority != nil {
		if err := validPriority(*u.Priority); err != nil {
			return u, err
		}
	}
	if u.Status, err = args.OptionalInt("status"); err != nil {
		return u, err
	}
	if u.Status != nil && *u.Status != 0 && *u.Status != 2 {
		return u, errors.New("status must be 0 (open) or 2 (completed)")
	}
	if u.Tags, err = args.OptionalStringSlice("tags"); err != nil {
		return u, err
	}
	if u.SpecificDates, err = args.OptionalStringSlice("specific_dates"); err != nil {
		return u, err
	}
	return u, nil
}

func (h *handlers) deleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := common.Arguments(request.GetArguments()).RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	if err := s.DeleteTask(ctx, taskID); err != nil {
		h.logger().Error("failed to delete task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"message": "Task " + taskID + " deleted",
	})
}

func (h *handlers) moveTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	to, err := args.RequiredString("to_project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	res, err := s.MoveTask(ctx, taskID, to)
	if err != nil {
		h.logger().Error("failed to move task", logging.TaskID(taskID), logging.ProjectID(to), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success":    true,
		"task":       res.Task,
		"moved_from": res.From,
		"moved_to":   res.To,
	})
}

func (h *handlers) makeSubtask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	childID, err := args.RequiredString("child_task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	parentID, err := args.RequiredString("parent_task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	if childID == parentID {
		return common.ErrorMessage("a task cannot be its own parent"), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.SetParent(ctx, childID, parentID)
	if err != nil {
		h.logger().Error("failed to make subtask", logging.TaskID(childID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"message": "Task is now a subtask",
		"task":    task,
	})
}

func (h *handlers) removeSubtask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := common.Arguments(request.GetArguments()).RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.RemoveParent(ctx, taskID)
	if err != nil {
		h.logger().Error("failed to remove subtask", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"message": "Task is no longer a subtask",
		"task":    task,
	})
}

func (h *handlers) setRepeatFrom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	repeatFrom, err := args.RequiredString("repeat_from")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.SetRepeatFrom(ctx, taskID, repeatFrom)
	if err != nil {
		h.logger().Error("failed to set repeat from", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{"success": true, "task": task})
}

func (h *handlers) addChecklistItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	title, err := args.RequiredString("title")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.AddChecklistItem(ctx, taskID, title)
	if err != nil {
		h.logger().Error("failed to add checklist item", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{"success": true, "task": task})
}

func (h *handlers) removeChecklistItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	itemID, err := args.RequiredString("item_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	task, err := s.RemoveChecklistItem(ctx, taskID, itemID)
	if err != nil {
		h.logger().Error("failed to remove checklist item", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{"success": true, "task": task})
}

func (h *handlers) experimentalAPICall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	call, err := parseExperimentalCall(request.GetArguments())
	if err != nil {
		var invalid *invalidCallError
		if errors.As(err, &invalid) {
			return common.ErrorFields("invalid experimental_api_call arguments", map[string]any{
				"details": invalid.details,
			}), nil
		}
		return common.ErrorResult(err), nil
	}

	s, errResult := h.session()
	if errResult != nil {
		return errResult, nil
	}

	h.logger().Info("experimental api call", slog.String("method", call.Method), logging.Endpoint(call.Endpoint))
	raw, err := s.CallAPI(ctx, call.Method, call.Endpoint, call.Data, call.Params)
	if err != nil {
		h.logger().Error("experimental api call failed",
			slog.String("method", call.Method),
			logging.Endpoint(call.Endpoint),
			logging.Err(err))
		return common.ErrorResult(err), nil
	}
	if raw == nil {
		return common.JSONResult(map[string]any{"success": true})
	}
	return common.JSONResult(raw)
}
