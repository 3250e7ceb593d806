package ticktick

import (
	"sort"
	"strings"
	"time"
)

// Filter status values.
const (
	FilterUncompleted = "uncompleted"
	FilterCompleted   = "completed"
	FilterAll         = "all"
)

var dateLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses the timestamp formats TickTick emits
// ("2024-07-26T10:00:00.000+0000", RFC 3339, naive) and falls back to the
// leading YYYY-MM-DD. The second result is false for empty or unparsable
// input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse(time.DateOnly, s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// day is the calendar date of t in its own offset.
func day(t time.Time) string {
	return t.Format(time.DateOnly)
}

// TaskFilter selects tasks client side. Zero values disable a criterion,
// except Status which defaults to FilterUncompleted.
type TaskFilter struct {
	Status    string
	ProjectID string
	TagLabel  string
	Priority  *int

	// Due range is applied only when filtering uncompleted tasks.
	DueStart string
	DueEnd   string

	// Completion range is applied only when filtering completed tasks.
	CompletionStart string
	CompletionEnd   string
}

func (f TaskFilter) status() string {
	if f.Status == "" {
		return FilterUncompleted
	}
	return f.Status
}

// Matches reports whether t passes every set criterion. Range bounds are
// inclusive and compared by calendar day. A task without the date a range
// looks at never matches that range.
func (f TaskFilter) Matches(t Task) bool {
	status := f.status()
	switch status {
	case FilterUncompleted:
		if t.Status != StatusUncompleted {
			return false
		}
	case FilterCompleted:
		if t.Status != StatusCompleted {
			return false
		}
	}

	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.TagLabel != "" && !containsString(t.Tags, f.TagLabel) {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}

	switch status {
	case FilterUncompleted:
		return inRange(t.DueDate, f.DueStart, f.DueEnd)
	case FilterCompleted:
		return inRange(t.CompletedTime, f.CompletionStart, f.CompletionEnd)
	}
	return true
}

func inRange(value, start, end string) bool {
	if start == "" && end == "" {
		return true
	}
	v, ok := ParseDate(value)
	if !ok {
		return false
	}
	if s, ok := ParseDate(start); ok && day(v) < day(s) {
		return false
	}
	if e, ok := ParseDate(end); ok && day(v) > day(e) {
		return false
	}
	return true
}

// Apply returns the matching tasks in input order, never nil.
func (f TaskFilter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Applied lists the set criteria under their tool parameter names.
func (f TaskFilter) Applied() map[string]any {
	m := map[string]any{"status": f.status()}
	add := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	add("project_id", f.ProjectID)
	add("tag_label", f.TagLabel)
	add("due_start_date", f.DueStart)
	add("due_end_date", f.DueEnd)
	add("completion_start_date", f.CompletionStart)
	add("completion_end_date", f.CompletionEnd)
	if f.Priority != nil {
		m["priority"] = *f.Priority
	}
	return m
}

// SortByPriority orders tasks by descending priority, keeping the relative
// order of equal priorities.
func SortByPriority(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority > tasks[j].Priority
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
