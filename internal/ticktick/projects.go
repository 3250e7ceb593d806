package ticktick

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
)

// GetProjects lists all projects of the user. The Inbox is not included.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, instrumentation.OperationList, http.MethodGet, "/project", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns a single project.
func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	if err := c.do(ctx, instrumentation.OperationGet, http.MethodGet, "/project/"+url.PathEscape(projectID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectWithData returns a project together with its open tasks and
// columns.
func (c *Client) GetProjectWithData(ctx context.Context, projectID string) (*ProjectData, error) {
	var data ProjectData
	path := "/project/" + url.PathEscape(projectID) + "/data"
	if err := c.do(ctx, instrumentation.OperationGet, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetInbox returns the Inbox with its open tasks.
func (c *Client) GetInbox(ctx context.Context) (*ProjectData, error) {
	inboxID, err := c.InboxID()
	if err != nil {
		return nil, err
	}
	return c.GetProjectWithData(ctx, inboxID)
}

// CreateProject creates a project. Name is required.
func (c *Client) CreateProject(ctx context.Context, fields ProjectFields) (*Project, error) {
	if fields.Name == nil || *fields.Name == "" {
		return nil, errors.New("project name is required")
	}
	var p Project
	if err := c.do(ctx, instrumentation.OperationCreate, http.MethodPost, "/project", fields, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject sends only the set fields of a project.
func (c *Client) UpdateProject(ctx context.Context, projectID string, fields ProjectFields) (*Project, error) {
	var p Project
	if err := c.do(ctx, instrumentation.OperationUpdate, http.MethodPost, "/project/"+url.PathEscape(projectID), fields, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject deletes a project and its tasks.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, instrumentation.OperationDelete, http.MethodDelete, "/project/"+url.PathEscape(projectID), nil, nil)
}
