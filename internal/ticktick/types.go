package ticktick

// Task statuses.
const (
	StatusUncompleted = 0
	StatusCompleted   = 2
)

// Priorities accepted by the API.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 3
	PriorityHigh   = 5
)

// Project is a TickTick list.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	ViewMode   string `json:"viewMode,omitempty"`
	Kind       string `json:"kind,omitempty"`
	SortOrder  int64  `json:"sortOrder,omitempty"`
	Closed     bool   `json:"closed,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	Permission string `json:"permission,omitempty"`
}

// ChecklistItem is an entry of a task's items array. It has no identity
// outside its parent task.
type ChecklistItem struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	StartDate     string `json:"startDate,omitempty"`
	IsAllDay      bool   `json:"isAllDay,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
	SortOrder     int64  `json:"sortOrder,omitempty"`
	CompletedTime string `json:"completedTime,omitempty"`
}

// Task is a TickTick task as returned by the Open API.
type Task struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId"`
	Title         string          `json:"title"`
	Content       string          `json:"content,omitempty"`
	Desc          string          `json:"desc,omitempty"`
	IsAllDay      bool            `json:"isAllDay,omitempty"`
	StartDate     string          `json:"startDate,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
	TimeZone      string          `json:"timeZone,omitempty"`
	Reminders     []string        `json:"reminders,omitempty"`
	RepeatFlag    string          `json:"repeatFlag,omitempty"`
	Priority      int             `json:"priority"`
	Status        int             `json:"status"`
	CompletedTime string          `json:"completedTime,omitempty"`
	SortOrder     int64           `json:"sortOrder,omitempty"`
	Items         []ChecklistItem `json:"items,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Kind          string          `json:"kind,omitempty"`
	ParentID      string          `json:"parentId,omitempty"`
	ChildIDs      []string        `json:"childIds,omitempty"`
}

// Column is a kanban column of a project.
type Column struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	SortOrder int64  `json:"sortOrder,omitempty"`
}

// ProjectData is the response of GET /project/{id}/data.
type ProjectData struct {
	Project Project  `json:"project"`
	Tasks   []Task   `json:"tasks"`
	Columns []Column `json:"columns,omitempty"`
}

// ProjectFields are the writable project fields. Nil fields are not sent.
type ProjectFields struct {
	Name      *string `json:"name,omitempty"`
	Color     *string `json:"color,omitempty"`
	ViewMode  *string `json:"viewMode,omitempty"`
	Kind      *string `json:"kind,omitempty"`
	SortOrder *int64  `json:"sortOrder,omitempty"`
}

// TaskFields are the writable task fields. Nil fields are not sent, so an
// update only touches what the caller set.
type TaskFields struct {
	Title      *string          `json:"title,omitempty"`
	Content    *string          `json:"content,omitempty"`
	Desc       *string          `json:"desc,omitempty"`
	IsAllDay   *bool            `json:"isAllDay,omitempty"`
	StartDate  *string          `json:"startDate,omitempty"`
	DueDate    *string          `json:"dueDate,omitempty"`
	TimeZone   *string          `json:"timeZone,omitempty"`
	Reminders  *[]string        `json:"reminders,omitempty"`
	RepeatFlag *string          `json:"repeatFlag,omitempty"`
	Priority   *int             `json:"priority,omitempty"`
	Tags       *[]string        `json:"tags,omitempty"`
	Items      *[]ChecklistItem `json:"items,omitempty"`
}

// taskWrite is the request body of task create and update calls.
type taskWrite struct {
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"projectId"`
	TaskFields
}

// Ptr returns a pointer to v, for filling the *Fields structs.
func Ptr[T any](v T) *T {
	return &v
}
