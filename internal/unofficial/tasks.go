package unofficial

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Endpoints of the web API.
const (
	BatchCheckPath       = "/api/v2/batch/check/0"
	BatchTaskPath        = "/api/v2/batch/task"
	BatchTaskProjectPath = "/api/v2/batch/taskProject"
	BatchTaskParentPath  = "/api/v2/batch/taskParent"
	TaskPath             = "/api/v2/task/"
	TaskActivityPath     = "/api/v1/task/activity/"
)

// PinnedTimeLayout formats pinnedTime.
const PinnedTimeLayout = "2006-01-02T15:04:05.000+0000"

// unpinnedTime is the pinnedTime of a task that is not pinned.
const unpinnedTime = "-1"

// DefaultTimeZone is used for new tasks without a time zone.
const DefaultTimeZone = "America/New_York"

// AllData is the full account snapshot of batch/check.
type AllData struct {
	Tasks    []Task   `json:"tasks"`
	Projects []Object `json:"projects"`
	Tags     []Object `json:"tags"`
}

// GetAllData fetches every open task, project profile and tag.
func (s *Session) GetAllData(ctx context.Context) (*AllData, error) {
	raw, err := s.CallAPI(ctx, http.MethodGet, BatchCheckPath, nil, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		SyncTaskBean struct {
			Update []Task `json:"update"`
		} `json:"syncTaskBean"`
		ProjectProfiles []Object `json:"projectProfiles"`
		Tags            []Object `json:"tags"`
	}
	if len(raw) > 0 {
		if err := decode(raw, &resp); err != nil {
			return nil, errors.Wrap(err, "decode batch check")
		}
	}
	data := &AllData{
		Tasks:    resp.SyncTaskBean.Update,
		Projects: resp.ProjectProfiles,
		Tags:     resp.Tags,
	}
	if data.Tasks == nil {
		data.Tasks = []Task{}
	}
	if data.Projects == nil {
		data.Projects = []Object{}
	}
	if data.Tags == nil {
		data.Tags = []Object{}
	}
	return data, nil
}

// FindTask looks a task up in the batch/check snapshot. Only open tasks are
// part of it.
func (s *Session) FindTask(ctx context.Context, taskID string) (Task, error) {
	data, err := s.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range data.Tasks {
		if t.ID() == taskID {
			return t, nil
		}
	}
	return nil, taskNotFound(taskID)
}

// GetTask fetches the full record of a task, open or completed.
func (s *Session) GetTask(ctx context.Context, taskID string) (Task, error) {
	raw, err := s.CallAPI(ctx, http.MethodGet, TaskPath+url.PathEscape(taskID), nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || strings.Contains(apiErr.Body, "task_not_found")) {
			return nil, taskNotFound(taskID)
		}
		return nil, err
	}
	t, err := decodeTask(raw)
	if errors.Is(err, ErrTaskNotFound) {
		return nil, taskNotFound(taskID)
	}
	return t, err
}

// TaskRef addresses a task for deletion.
type TaskRef struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
}

// BatchResult is the reply of the batch endpoints.
type BatchResult struct {
	ID2Etag  map[string]string `json:"id2etag"`
	ID2Error map[string]any    `json:"id2error"`
}

// ErrorFor returns the per-task error reported for id, if any.
func (r *BatchResult) ErrorFor(id string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.ID2Error[id]
	if !ok || v == nil || v == "" {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func decodeBatchResult(raw json.RawMessage) (*BatchResult, error) {
	res := &BatchResult{}
	if len(raw) == 0 {
		return res, nil
	}
	if err := decode(raw, res); err != nil {
		return nil, errors.Wrap(err, "decode batch result")
	}
	return res, nil
}

// BatchTask sends whole task records to the batch endpoint.
func (s *Session) BatchTask(ctx context.Context, add, update []Task, del []TaskRef) (*BatchResult, error) {
	if add == nil {
		add = []Task{}
	}
	if update == nil {
		update = []Task{}
	}
	if del == nil {
		del = []TaskRef{}
	}
	raw, err := s.CallAPI(ctx, http.MethodPost, BatchTaskPath, map[string]any{
		"add":    add,
		"update": update,
		"delete": del,
	}, nil)
	if err != nil {
		return nil, err
	}
	return decodeBatchResult(raw)
}

// saveTask sends back a full record and stores the new etag on it.
func (s *Session) saveTask(ctx context.Context, t Task, op string) (Task, error) {
	res, err := s.BatchTask(ctx, nil, []Task{t}, nil)
	if err != nil {
		return nil, err
	}
	if msg, ok := res.ErrorFor(t.ID()); ok {
		return nil, errors.Newf("%s failed: %s", op, msg)
	}
	if etag, ok := res.ID2Etag[t.ID()]; ok {
		t["etag"] = etag
	}
	return t, nil
}

// NewTask describes a task to create.
type NewTask struct {
	Title         string
	ProjectID     string
	Content       string
	StartDate     string
	DueDate       string
	Priority      int
	Tags          []string
	IsAllDay      bool
	TimeZone      string
	RepeatFlag    string
	RepeatFrom    string
	SpecificDates []string
}

// CreateTask creates a task, including recurrence fields the Open API
// cannot set. Specific dates win over RepeatFlag.
func (s *Session) CreateTask(ctx context.Context, nt NewTask) (Task, error) {
	if nt.Title == "" {
		return nil, errors.New("title is required")
	}
	if nt.ProjectID == "" {
		return nil, errors.New("project_id is required")
	}
	tz := nt.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}

	t := Task{
		"title":     nt.Title,
		"projectId": nt.ProjectID,
		"priority":  nt.Priority,
		"status":    0,
		"timeZone":  tz,
		"isAllDay":  nt.IsAllDay,
	}
	if nt.Content != "" {
		t["content"] = nt.Content
	}
	if nt.StartDate != "" {
		t["startDate"] = nt.StartDate
	}
	if nt.DueDate != "" {
		t["dueDate"] = nt.DueDate
	}
	if len(nt.Tags) > 0 {
		t["tags"] = nt.Tags
	}

	switch {
	case len(nt.SpecificDates) > 0:
		if err := applyERule(t, nt.SpecificDates); err != nil {
			return nil, err
		}
	case nt.RepeatFlag != "":
		t["repeatFlag"] = nt.RepeatFlag
		if nt.RepeatFrom != "" {
			t["repeatFrom"] = NormalizeRepeatFrom(nt.RepeatFrom)
		}
	}

	res, err := s.BatchTask(ctx, []Task{t}, nil, nil)
	if err != nil {
		return nil, err
	}
	for id, etag := range res.ID2Etag {
		t["id"] = id
		t["etag"] = etag
		break
	}
	return t, nil
}

// TaskUpdate lists the fields to change. Nil fields are left untouched.
type TaskUpdate struct {
	Title         *string
	Content       *string
	StartDate     *string
	DueDate       *string
	Priority      *int
	Status        *int
	Tags          *[]string
	RepeatFlag    *string
	RepeatFrom    *string
	SpecificDates *[]string
}

// UpdateTask fetches the full record, applies u and sends the record back.
// Setting status 0 clears completedTime, which un-completes the task.
func (s *Session) UpdateTask(ctx context.Context, taskID string, u TaskUpdate) (Task, error) {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if u.Title != nil {
		t["title"] = *u.Title
	}
	if u.Content != nil {
		t["content"] = *u.Content
	}
	if u.StartDate != nil {
		t["startDate"] = *u.StartDate
	}
	if u.DueDate != nil {
		t["dueDate"] = *u.DueDate
	}
	if u.Priority != nil {
		t["priority"] = *u.Priority
	}
	if u.Tags != nil {
		t["tags"] = *u.Tags
	}
	if u.Status != nil {
		t["status"] = *u.Status
		if *u.Status == 0 {
			t["completedTime"] = nil
		}
	}

	if u.SpecificDates != nil {
		if err := applyERule(t, *u.SpecificDates); err != nil {
			return nil, err
		}
	} else {
		if u.RepeatFlag != nil {
			t["repeatFlag"] = *u.RepeatFlag
		}
		if u.RepeatFrom != nil {
			t["repeatFrom"] = NormalizeRepeatFrom(*u.RepeatFrom)
		}
	}

	return s.saveTask(ctx, t, "Update")
}

// DeleteTask deletes an open task. Its project is looked up first.
func (s *Session) DeleteTask(ctx context.Context, taskID string) error {
	t, err := s.FindTask(ctx, taskID)
	if err != nil {
		return err
	}
	projectID := t.ProjectID()
	if projectID == "" {
		return errors.Newf("Task has no projectId: %s", taskID)
	}
	_, err = s.BatchTask(ctx, nil, nil, []TaskRef{{TaskID: taskID, ProjectID: projectID}})
	return err
}

// MoveResult describes a completed move.
type MoveResult struct {
	Task Task
	From string
	To   string
}

// MoveTask moves a task to another project and returns the re-fetched
// record.
func (s *Session) MoveTask(ctx context.Context, taskID, toProjectID string) (*MoveResult, error) {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	from := t.ProjectID()

	raw, err := s.CallAPI(ctx, http.MethodPost, BatchTaskProjectPath, []map[string]string{{
		"taskId":        taskID,
		"fromProjectId": from,
		"toProjectId":   toProjectID,
	}}, nil)
	if err != nil {
		return nil, err
	}
	res, err := decodeBatchResult(raw)
	if err != nil {
		return nil, err
	}
	if msg, ok := res.ErrorFor(taskID); ok {
		return nil, errors.Newf("Move failed: %s", msg)
	}

	moved, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &MoveResult{Task: moved, From: from, To: toProjectID}, nil
}

// PinTask pins a task and returns the pinnedTime it was given.
func (s *Session) PinTask(ctx context.Context, taskID string) (string, error) {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	now := s.now().UTC().Format(PinnedTimeLayout)
	t["pinnedTime"] = now
	if _, err := s.saveTask(ctx, t, "Pin"); err != nil {
		return "", err
	}
	return now, nil
}

// UnpinTask removes a task from the pinned list.
func (s *Session) UnpinTask(ctx context.Context, taskID string) error {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	t["pinnedTime"] = unpinnedTime
	_, err = s.saveTask(ctx, t, "Unpin")
	return err
}

// SetRepeatFrom sets whether a recurring task repeats from its due date or
// from its completion date.
func (s *Session) SetRepeatFrom(ctx context.Context, taskID, repeatFrom string) (Task, error) {
	value := NormalizeRepeatFrom(repeatFrom)
	if value != RepeatFromDueDate && value != RepeatFromCompletionDate {
		return nil, errors.Newf("repeat_from must be due_date (0) or completion_date (1), got %q", repeatFrom)
	}
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	t["repeatFrom"] = value
	return s.saveTask(ctx, t, "Set repeat")
}

// newItemID returns a 24 hex character id in the style of the web client.
func newItemID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// AddChecklistItem appends an open checklist item to a task.
func (s *Session) AddChecklistItem(ctx context.Context, taskID, title string) (Task, error) {
	if title == "" {
		return nil, errors.New("item title is required")
	}
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	items := t.Items()
	var maxOrder int64
	seen := false
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			if n, ok := m["sortOrder"].(json.Number); ok {
				if v, err := n.Int64(); err == nil && (!seen || v > maxOrder) {
					maxOrder, seen = v, true
				}
			}
		}
	}
	items = append(items, map[string]any{
		"id":        newItemID(),
		"title":     title,
		"status":    0,
		"sortOrder": maxOrder + 1,
	})
	t["items"] = items
	return s.saveTask(ctx, t, "Add checklist item")
}

// RemoveChecklistItem removes the checklist item with itemID from a task.
func (s *Session) RemoveChecklistItem(ctx context.Context, taskID, itemID string) (Task, error) {
	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	items := t.Items()
	kept := make([]any, 0, len(items))
	found := false
	for _, it := range items {
		if m, ok := it.(map[string]any); ok && stringField(m, "id") == itemID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return nil, errors.Newf("checklist item %s not found in task %s", itemID, taskID)
	}
	t["items"] = kept
	return s.saveTask(ctx, t, "Remove checklist item")
}

// ErrDifferentProjects is returned when linking tasks of two projects.
var ErrDifferentProjects = errors.New("Tasks must be in the same project")

// SetParent makes childID a true subtask of parentID. The relationship
// endpoint updates both records in one call.
func (s *Session) SetParent(ctx context.Context, childID, parentID string) (Task, error) {
	child, err := s.GetTask(ctx, childID)
	if err != nil {
		return nil, errors.Wrap(err, "child task")
	}
	parent, err := s.GetTask(ctx, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "parent task")
	}
	if child.ProjectID() != parent.ProjectID() {
		return nil, ErrDifferentProjects
	}

	if err := s.taskParent(ctx, childID, map[string]any{
		"taskId":    childID,
		"projectId": child.ProjectID(),
		"parentId":  parentID,
	}); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, childID)
}

// RemoveParent detaches a subtask from its parent. Nothing is deleted.
func (s *Session) RemoveParent(ctx context.Context, childID string) (Task, error) {
	child, err := s.GetTask(ctx, childID)
	if err != nil {
		return nil, err
	}
	oldParent := child.ParentID()
	if oldParent == "" {
		return nil, errors.Newf("task %s is not a subtask", childID)
	}

	if err := s.taskParent(ctx, childID, map[string]any{
		"taskId":      childID,
		"projectId":   child.ProjectID(),
		"oldParentId": oldParent,
		"parentId":    nil,
	}); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, childID)
}

func (s *Session) taskParent(ctx context.Context, childID string, entry map[string]any) error {
	raw, err := s.CallAPI(ctx, http.MethodPost, BatchTaskParentPath, []map[string]any{entry}, nil)
	if err != nil {
		return err
	}
	res, err := decodeBatchResult(raw)
	if err != nil {
		return err
	}
	if msg, ok := res.ErrorFor(childID); ok {
		return errors.Newf("Subtask update failed: %s", msg)
	}
	return nil
}

// TaskActivity returns the activity log of a task. skip pages through
// older entries.
func (s *Session) TaskActivity(ctx context.Context, taskID string, skip int) ([]Object, error) {
	var query url.Values
	if skip > 0 {
		query = url.Values{"skip": {strconv.Itoa(skip)}}
	}
	raw, err := s.CallAPI(ctx, http.MethodGet, TaskActivityPath+url.PathEscape(taskID), nil, query)
	if err != nil {
		return nil, err
	}
	entries := []Object{}
	if len(raw) > 0 {
		if err := decode(raw, &entries); err != nil {
			return nil, errors.Wrap(err, "decode activity")
		}
	}
	return entries, nil
}

// TasksFromProject returns the open tasks of a project, followed by its
// completed tasks when includeCompleted is set.
func (s *Session) TasksFromProject(ctx context.Context, projectID string, includeCompleted bool) ([]Task, error) {
	data, err := s.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	open := []Task{}
	var completed []Task
	for _, t := range data.Tasks {
		if t.ProjectID() != projectID {
			continue
		}
		switch t.Status() {
		case 0:
			open = append(open, t)
		case 2:
			completed = append(completed, t)
		}
	}
	if includeCompleted {
		open = append(open, completed...)
	}
	return open, nil
}
