package unofficial

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Task is a task record as the web API returns it. It is kept as a generic
// object so that a fetched record can be sent back with every field intact,
// including fields this package does not know about.
type Task map[string]any

// Object is any other record of the web API (project profile, tag, activity
// entry).
type Object map[string]any

// ID returns the task id.
func (t Task) ID() string { return stringField(t, "id") }

// ProjectID returns the id of the project holding the task.
func (t Task) ProjectID() string { return stringField(t, "projectId") }

// ParentID returns the parent task id of a subtask.
func (t Task) ParentID() string { return stringField(t, "parentId") }

// Title returns the task title.
func (t Task) Title() string { return stringField(t, "title") }

// Status returns the numeric status, 0 when absent.
func (t Task) Status() int {
	n, _ := intField(t["status"])
	return n
}

// Items returns the checklist items.
func (t Task) Items() []any {
	items, _ := t["items"].([]any)
	return items
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// decode unmarshals raw keeping numbers as json.Number, so large ids and
// sort orders survive a round trip unchanged.
func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeTask(raw json.RawMessage) (Task, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrTaskNotFound
	}
	var t Task
	if err := decode(raw, &t); err != nil {
		return nil, errors.Wrap(err, "decode task")
	}
	if len(t) == 0 {
		return nil, ErrTaskNotFound
	}
	return t, nil
}
