package task_tools

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/batch"
	"github.com/teemow/ticktick-mcp/internal/tools/common"
)

const (
	dateDescription     = "Date in \"yyyy-MM-dd'T'HH:mm:ssZ\" format, e.g. \"2019-11-13T03:00:00+0000\""
	priorityDescription = "Priority: 0=None, 1=Low, 3=Medium, 5=High"
	reminderDescription = "Reminders as RFC 5545 triggers, e.g. \"TRIGGER:PT0S\" (at time), \"TRIGGER:-PT30M\" (30 minutes before)"
	repeatDescription   = "Recurrence rule, e.g. \"RRULE:FREQ=DAILY;INTERVAL=1\" or \"RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR\""
)

// RegisterTaskTools registers all official task tools with the MCP server.
func RegisterTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	r := common.NewRegistrar(s, sc, instrumentation.ServiceOfficial, readOnly)
	h := &handlers{sc: sc}

	registerReadTools(r, h)
	registerWriteTools(r, h)
	return nil
}

func registerReadTools(r *common.Registrar, h *handlers) {
	r.Read(mcp.NewTool("ticktick_get_task",
		mcp.WithDescription("Get a specific task by ID"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("The project ID containing the task"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID"),
		),
	), h.getTask)

	r.Read(mcp.NewTool("ticktick_get_all_tasks",
		mcp.WithDescription("Get all open tasks from all projects, including the Inbox when TICKTICK_USER_ID is set. Makes one API call per project; projects that fail to load are skipped and listed in skipped_projects."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.getAllTasks)

	r.Read(mcp.NewTool("ticktick_filter_tasks",
		mcp.WithDescription(`Filter tasks from all projects client side.

Examples:
  uncompleted high-priority tasks: status="uncompleted", priority=5
  due this week: due_start_date="2024-07-22", due_end_date="2024-07-28"
  completed last week: status="completed", completion_start_date="2024-07-15", completion_end_date="2024-07-21"`),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("status",
			mcp.Description("Task status to select (default: uncompleted)"),
			mcp.Enum(ticktick.FilterUncompleted, ticktick.FilterCompleted, ticktick.FilterAll),
			mcp.DefaultString(ticktick.FilterUncompleted),
		),
		mcp.WithString("project_id",
			mcp.Description("Only tasks of this project"),
		),
		mcp.WithString("tag_label",
			mcp.Description("Only tasks carrying this tag (exact match)"),
		),
		mcp.WithNumber("priority",
			mcp.Description(priorityDescription),
		),
		mcp.WithString("due_start_date",
			mcp.Description("Start of the due date range, inclusive, e.g. \"2024-07-26\". Applies to uncompleted tasks."),
		),
		mcp.WithString("due_end_date",
			mcp.Description("End of the due date range, inclusive. Applies to uncompleted tasks."),
		),
		mcp.WithString("completion_start_date",
			mcp.Description("Start of the completion date range, inclusive. Applies to completed tasks."),
		),
		mcp.WithString("completion_end_date",
			mcp.Description("End of the completion date range, inclusive. Applies to completed tasks."),
		),
		mcp.WithBoolean("sort_by_priority",
			mcp.Description("Sort results by priority, highest first"),
		),
	), h.filterTasks)
}

func registerWriteTools(r *common.Registrar, h *handlers) {
	r.Write(mcp.NewTool("ticktick_create_task",
		mcp.WithDescription("Create a new task"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID. Use \"inbox{userId}\" for the Inbox."),
		),
		mcp.WithString("content", mcp.Description("Task content or notes")),
		mcp.WithString("desc", mcp.Description("Description of the checklist")),
		mcp.WithBoolean("is_all_day", mcp.Description("Whether the task is an all-day task")),
		mcp.WithString("start_date", mcp.Description("Start date. "+dateDescription)),
		mcp.WithString("due_date", mcp.Description("Due date. "+dateDescription)),
		mcp.WithString("time_zone", mcp.Description("Time zone, e.g. \"America/New_York\"")),
		mcp.WithArray("reminders", mcp.Description(reminderDescription), mcp.WithStringItems()),
		mcp.WithString("repeat_flag", mcp.Description(repeatDescription)),
		mcp.WithNumber("priority", mcp.Description(priorityDescription)),
		mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
	), h.createTask)

	r.Write(mcp.NewTool("ticktick_create_task_with_subtasks",
		mcp.WithDescription("Create a new task with subtasks (checklist items)"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
		mcp.WithArray("subtasks",
			mcp.Required(),
			mcp.Description("Subtask titles"),
			mcp.WithStringItems(),
		),
		mcp.WithString("content", mcp.Description("Task content or notes")),
		mcp.WithString("due_date", mcp.Description("Due date. "+dateDescription)),
		mcp.WithString("time_zone", mcp.Description("Time zone")),
		mcp.WithNumber("priority", mcp.Description(priorityDescription)),
		mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
	), h.createTaskWithSubtasks)

	r.Write(mcp.NewTool("ticktick_update_task",
		mcp.WithDescription("Update an existing task. Only the given fields are sent; everything else keeps its value."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID to update"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID containing the task"),
		),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New content")),
		mcp.WithBoolean("is_all_day", mcp.Description("Whether the task is an all-day task")),
		mcp.WithString("start_date", mcp.Description("New start date. "+dateDescription)),
		mcp.WithString("due_date", mcp.Description("New due date. "+dateDescription)),
		mcp.WithString("time_zone", mcp.Description("New time zone")),
		mcp.WithArray("reminders", mcp.Description("New reminders list. "+reminderDescription), mcp.WithStringItems()),
		mcp.WithString("repeat_flag", mcp.Description("New recurrence rule. "+repeatDescription)),
		mcp.WithNumber("priority", mcp.Description("New priority. "+priorityDescription)),
		mcp.WithArray("tags", mcp.Description("New tags list, replaces the existing tags"), mcp.WithStringItems()),
	), h.updateTask)

	r.Write(mcp.NewTool("ticktick_complete_task",
		mcp.WithDescription("Mark a task as complete"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID containing the task"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID to complete"),
		),
	), h.completeTask)

	r.Write(mcp.NewTool("ticktick_delete_task",
		mcp.WithDescription("Delete a task. WARNING: this permanently deletes the task."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID containing the task"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID to delete"),
		),
	), h.deleteTask)

	r.Write(mcp.NewTool("ticktick_complete_tasks",
		mcp.WithDescription("Mark several tasks of one project as complete. Failures are reported per task."),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID containing the tasks"),
		),
		mcp.WithString("task_ids",
			mcp.Required(),
			mcp.Description("Task IDs, comma-separated or as a JSON array"),
		),
	), h.completeTasks)

	r.Write(mcp.NewTool("ticktick_delete_tasks",
		mcp.WithDescription("Delete several tasks of one project. Failures are reported per task."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("Project ID containing the tasks"),
		),
		mcp.WithString("task_ids",
			mcp.Required(),
			mcp.Description("Task IDs, comma-separated or as a JSON array"),
		),
	), h.deleteTasks)

	r.Write(mcp.NewTool("ticktick_move_task",
		mcp.WithDescription("Move a task from one project to another by updating its projectId"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task ID to move"),
		),
		mcp.WithString("from_project_id",
			mcp.Required(),
			mcp.Description("Current project ID"),
		),
		mcp.WithString("to_project_id",
			mcp.Required(),
			mcp.Description("Destination project ID"),
		),
	), h.moveTask)

	r.Write(mcp.NewTool("ticktick_make_subtask",
		mcp.WithDescription(`Turn a task into a checklist item of another task in the same project.

The child task is appended to the parent's items and then deleted. For a true
parent/child task relationship use unofficial_make_subtask.`),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("child_task_id",
			mcp.Required(),
			mcp.Description("The task ID to become a checklist item"),
		),
		mcp.WithString("child_project_id",
			mcp.Required(),
			mcp.Description("The project ID containing both tasks"),
		),
		mcp.WithString("parent_task_id",
			mcp.Required(),
			mcp.Description("The task ID that receives the checklist item"),
		),
	), h.makeSubtask)
}

type handlers struct {
	sc *server.ServerContext
}

// errPriority is returned for priorities the API does not know.
var errPriority = errors.New("priority must be one of 0, 1, 3, 5")

func validPriority(p *int) error {
	if p == nil {
		return nil
	}
	switch *p {
	case ticktick.PriorityNone, ticktick.PriorityLow, ticktick.PriorityMedium, ticktick.PriorityHigh:
		return nil
	}
	return errPriority
}

// parseTaskFields reads the writable task fields present in args.
func parseTaskFields(args common.Arguments) (ticktick.TaskFields, error) {
	var (
		f   ticktick.TaskFields
		err error
	)
	strs := []struct {
		name string
		dst  **string
	}{
		{"title", &f.Title},
		{"content", &f.Content},
		{"desc", &f.Desc},
		{"start_date", &f.StartDate},
		{"due_date", &f.DueDate},
		{"time_zone", &f.TimeZone},
		{"repeat_flag", &f.RepeatFlag},
	}
	for _, s := range strs {
		if *s.dst, err = args.OptionalString(s.name); err != nil {
			return f, err
		}
	}
	if f.IsAllDay, err = args.OptionalBool("is_all_day"); err != nil {
		return f, err
	}
	if f.Priority, err = args.OptionalInt("priority"); err != nil {
		return f, err
	}
	if err := validPriority(f.Priority); err != nil {
		return f, err
	}
	if f.Reminders, err = args.OptionalStringSlice("reminders"); err != nil {
		return f, err
	}
	if f.Tags, err = args.OptionalStringSlice("tags"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *handlers) getTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	task, err := client.GetTask(ctx, projectID, taskID)
	if err != nil {
		h.sc.Logger().Error("failed to get task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(formatTask(*task))
}

func (h *handlers) createTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	if _, err := args.RequiredString("title"); err != nil {
		return common.ErrorResult(err), nil
	}
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	fields, err := parseTaskFields(args)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	return h.create(ctx, projectID, fields)
}

func (h *handlers) createTaskWithSubtasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	title, err := args.RequiredString("title")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	subtasks, err := args.OptionalStringSlice("subtasks")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	if subtasks == nil || len(*subtasks) == 0 {
		return common.ErrorMessage("subtasks is required"), nil
	}

	fields := ticktick.TaskFields{Title: &title}
	if fields.Content, err = args.OptionalString("content"); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.DueDate, err = args.OptionalString("due_date"); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.TimeZone, err = args.OptionalString("time_zone"); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.Priority, err = args.OptionalInt("priority"); err != nil {
		return common.ErrorResult(err), nil
	}
	if err := validPriority(fields.Priority); err != nil {
		return common.ErrorResult(err), nil
	}
	if fields.Tags, err = args.OptionalStringSlice("tags"); err != nil {
		return common.ErrorResult(err), nil
	}

	items := make([]ticktick.ChecklistItem, 0, len(*subtasks))
	for _, s := range *subtasks {
		items = append(items, ticktick.ChecklistItem{Title: s, Status: ticktick.StatusUncompleted})
	}
	fields.Items = &items

	return h.create(ctx, projectID, fields)
}

func (h *handlers) create(ctx context.Context, projectID string, fields ticktick.TaskFields) (*mcp.CallToolResult, error) {
	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	task, err := client.CreateTask(ctx, projectID, fields)
	if err != nil {
		h.sc.Logger().Error("failed to create task", logging.ProjectID(projectID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"task":    formatTask(*task),
	})
}

func (h *handlers) updateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	fields, err := parseTaskFields(args)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	task, err := client.UpdateTask(ctx, taskID, projectID, fields)
	if err != nil {
		h.sc.Logger().Error("failed to update task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{
		"success": true,
		"task":    formatTask(*task),
	})
}

func (h *handlers) completeTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	msg, err := completeOne(ctx, client, projectID, taskID)
	if err != nil {
		h.sc.Logger().Error("failed to complete task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{"success": true, "message": msg})
}

func (h *handlers) deleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	msg, err := deleteOne(ctx, client, projectID, taskID)
	if err != nil {
		h.sc.Logger().Error("failed to delete task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(map[string]any{"success": true, "message": msg})
}

func completeOne(ctx context.Context, client *ticktick.Client, projectID, taskID string) (string, error) {
	if err := client.CompleteTask(ctx, projectID, taskID); err != nil {
		return "", err
	}
	return "Task " + taskID + " marked as complete", nil
}

func deleteOne(ctx context.Context, client *ticktick.Client, projectID, taskID string) (string, error) {
	if err := client.DeleteTask(ctx, projectID, taskID); err != nil {
		return "", err
	}
	return "Task " + taskID + " deleted successfully", nil
}

func (h *handlers) completeTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.batch(ctx, request, completeOne)
}

func (h *handlers) deleteTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.batch(ctx, request, deleteOne)
}

func (h *handlers) batch(
	ctx context.Context,
	request mcp.CallToolRequest,
	op func(ctx context.Context, client *ticktick.Client, projectID, taskID string) (string, error),
) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	projectID, err := args.RequiredString("project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	ids, err := batch.ParseStringOrArray(args["task_ids"], "task_ids")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	results := batch.ProcessBatch(ctx, ids, func(ctx context.Context, id string) (string, error) {
		return op(ctx, client, projectID, id)
	})
	return common.JSONResult(batch.Summarize(results))
}

func (h *handlers) getAllTasks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	tasks, failures, err := client.GetAllTasks(ctx)
	if err != nil {
		h.sc.Logger().Error("failed to get all tasks", logging.Err(err))
		return common.ErrorResult(err), nil
	}

	out := map[string]any{
		"tasks":       formatTasks(tasks),
		"total_count": len(tasks),
	}
	if len(failures) > 0 {
		out["skipped_projects"] = failures
	}
	return common.JSONResult(out)
}

func (h *handlers) filterTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())

	filter := ticktick.TaskFilter{
		Status:          args.String("status", ticktick.FilterUncompleted),
		ProjectID:       args.String("project_id", ""),
		TagLabel:        args.String("tag_label", ""),
		DueStart:        args.String("due_start_date", ""),
		DueEnd:          args.String("due_end_date", ""),
		CompletionStart: args.String("completion_start_date", ""),
		CompletionEnd:   args.String("completion_end_date", ""),
	}
	switch filter.Status {
	case ticktick.FilterUncompleted, ticktick.FilterCompleted, ticktick.FilterAll:
	default:
		return common.ErrorMessage("status must be one of uncompleted, completed, all"), nil
	}
	priority, err := args.OptionalInt("priority")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	filter.Priority = priority
	sortByPriority, err := args.Bool("sort_by_priority", false)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	all, failures, err := client.GetAllTasks(ctx)
	if err != nil {
		h.sc.Logger().Error("failed to filter tasks", logging.Err(err))
		return common.ErrorResult(err), nil
	}

	matched := filter.Apply(all)
	if sortByPriority {
		ticktick.SortByPriority(matched)
	}

	out := map[string]any{
		"tasks":           formatTasks(matched),
		"total_count":     len(matched),
		"filters_applied": filter.Applied(),
	}
	if len(failures) > 0 {
		out["skipped_projects"] = failures
	}
	return common.JSONResult(out)
}

func (h *handlers) moveTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	taskID, err := args.RequiredString("task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	from, err := args.RequiredString("from_project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	to, err := args.RequiredString("to_project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	task, err := client.GetTask(ctx, from, taskID)
	if err != nil {
		h.sc.Logger().Error("failed to load task to move", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}

	moved, err := client.UpdateTask(ctx, taskID, to, ticktick.TaskFields{Title: &task.Title})
	if err != nil {
		h.sc.Logger().Error("failed to move task", logging.TaskID(taskID), logging.Err(err))
		return common.ErrorResult(err), nil
	}

	return common.JSONResult(map[string]any{
		"success":    true,
		"task":       formatTask(*moved),
		"moved_from": from,
		"moved_to":   to,
	})
}

func (h *handlers) makeSubtask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := common.Arguments(request.GetArguments())
	childID, err := args.RequiredString("child_task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	projectID, err := args.RequiredString("child_project_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	parentID, err := args.RequiredString("parent_task_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	client, err := h.sc.Official()
	if err != nil {
		return common.ErrorResult(err), nil
	}

	child, err := client.GetTask(ctx, projectID, childID)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	parent, err := client.GetTask(ctx, projectID, parentID)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	if child.ProjectID != parent.ProjectID {
		return common.ErrorFields("Tasks must be in the same project to create a subtask relationship", map[string]any{
			"child_project":  child.ProjectID,
			"parent_project": parent.ProjectID,
		}), nil
	}

	items := append([]ticktick.ChecklistItem{}, parent.Items...)
	items = append(items, ticktick.ChecklistItem{
		Title:     child.Title,
		Status:    child.Status,
		StartDate: child.StartDate,
	})

	// Two independent calls: a failed delete leaves the child next to its
	// new checklist copy.
	updated, err := client.UpdateTask(ctx, parentID, projectID, ticktick.TaskFields{Items: &items})
	if err != nil {
		h.sc.Logger().Error("failed to add checklist item", logging.TaskID(parentID), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	if err := client.DeleteTask(ctx, projectID, childID); err != nil {
		h.sc.Logger().Error("failed to delete converted task", logging.TaskID(childID), logging.Err(err))
		return common.ErrorResult(err), nil
	}

	return common.JSONResult(map[string]any{
		"success":     true,
		"message":     "Task '" + child.Title + "' is now a subtask of '" + parent.Title + "'",
		"parent_task": formatTask(*updated),
		"note":        "Original task was deleted and converted to a subtask item",
	})
}
