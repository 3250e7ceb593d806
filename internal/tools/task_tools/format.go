package task_tools

import "github.com/teemow/ticktick-mcp/internal/ticktick"

// taskView is the task shape returned by the tools. Unset values are
// rendered as null.
type taskView struct {
	ID            string                   `json:"id"`
	ProjectID     string                   `json:"projectId"`
	Title         string                   `json:"title"`
	Content       *string                  `json:"content"`
	Desc          *string                  `json:"desc"`
	IsAllDay      bool                     `json:"isAllDay"`
	StartDate     *string                  `json:"startDate"`
	DueDate       *string                  `json:"dueDate"`
	TimeZone      *string                  `json:"timeZone"`
	Reminders     []string                 `json:"reminders"`
	RepeatFlag    *string                  `json:"repeatFlag"`
	Priority      int                      `json:"priority"`
	Status        int                      `json:"status"`
	CompletedTime *string                  `json:"completedTime"`
	SortOrder     int64                    `json:"sortOrder"`
	Items         []ticktick.ChecklistItem `json:"items"`
	Tags          []string                 `json:"tags"`
	Kind          *string                  `json:"kind"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTask(t ticktick.Task) taskView {
	return taskView{
		ID:            t.ID,
		ProjectID:     t.ProjectID,
		Title:         t.Title,
		Content:       nullable(t.Content),
		Desc:          nullable(t.Desc),
		IsAllDay:      t.IsAllDay,
		StartDate:     nullable(t.StartDate),
		DueDate:       nullable(t.DueDate),
		TimeZone:      nullable(t.TimeZone),
		Reminders:     t.Reminders,
		RepeatFlag:    nullable(t.RepeatFlag),
		Priority:      t.Priority,
		Status:        t.Status,
		CompletedTime: nullable(t.CompletedTime),
		SortOrder:     t.SortOrder,
		Items:         t.Items,
		Tags:          t.Tags,
		Kind:          nullable(t.Kind),
	}
}

func formatTasks(tasks []ticktick.Task) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, formatTask(t))
	}
	return out
}
