package ticktick

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
)

func taskPath(projectID, taskID string) string {
	return "/project/" + url.PathEscape(projectID) + "/task/" + url.PathEscape(taskID)
}

// GetTask returns a task of a project.
func (c *Client) GetTask(ctx context.Context, projectID, taskID string) (*Task, error) {
	var t Task
	if err := c.do(ctx, instrumentation.OperationGet, http.MethodGet, taskPath(projectID, taskID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a task in projectID. A title is required.
func (c *Client) CreateTask(ctx context.Context, projectID string, fields TaskFields) (*Task, error) {
	if fields.Title == nil || *fields.Title == "" {
		return nil, errors.New("task title is required")
	}
	if projectID == "" {
		return nil, errors.New("project id is required")
	}
	var t Task
	body := taskWrite{ProjectID: projectID, TaskFields: fields}
	if err := c.do(ctx, instrumentation.OperationCreate, http.MethodPost, "/task", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask sends the task id, the project id and the set fields. Fields
// left nil keep their current value on the server.
func (c *Client) UpdateTask(ctx context.Context, taskID, projectID string, fields TaskFields) (*Task, error) {
	var t Task
	body := taskWrite{ID: taskID, ProjectID: projectID, TaskFields: fields}
	if err := c.do(ctx, instrumentation.OperationUpdate, http.MethodPost, "/task/"+url.PathEscape(taskID), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask marks a task completed.
func (c *Client) CompleteTask(ctx context.Context, projectID, taskID string) error {
	return c.do(ctx, instrumentation.OperationComplete, http.MethodPost, taskPath(projectID, taskID)+"/complete", nil, nil)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	return c.do(ctx, instrumentation.OperationDelete, http.MethodDelete, taskPath(projectID, taskID), nil, nil)
}

// ProjectFailure records a project skipped by GetAllTasks.
type ProjectFailure struct {
	ProjectID string `json:"project_id"`
	Error     string `json:"error"`
}

// GetAllTasks collects the open tasks of the Inbox (when a user id is set)
// and of every project. A project whose data cannot be loaded is logged,
// recorded in the returned failures and skipped. Only a failure to list the
// projects themselves is returned as an error.
func (c *Client) GetAllTasks(ctx context.Context) ([]Task, []ProjectFailure, error) {
	var (
		all      []Task
		failures []ProjectFailure
	)

	if inboxID, err := c.InboxID(); err == nil {
		data, err := c.GetProjectWithData(ctx, inboxID)
		if err != nil {
			c.logger.Warn("skipping inbox", logging.ProjectID(inboxID), logging.Err(err))
			failures = append(failures, ProjectFailure{ProjectID: inboxID, Error: err.Error()})
		} else {
			all = append(all, data.Tasks...)
		}
	}

	projects, err := c.GetProjects(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		data, err := c.GetProjectWithData(ctx, p.ID)
		if err != nil {
			c.logger.Warn("skipping project", logging.ProjectID(p.ID), logging.Err(err))
			failures = append(failures, ProjectFailure{ProjectID: p.ID, Error: err.Error()})
			continue
		}
		all = append(all, data.Tasks...)
	}

	if all == nil {
		all = []Task{}
	}
	return all, failures, nil
}
