package unofficial

import (
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Values of the repeatFrom field.
const (
	RepeatFromDueDate        = "0"
	RepeatFromCompletionDate = "1"
)

// firstDateSuffix is the fixed time of day of repeatFirstDate.
const firstDateSuffix = "T05:00:00.000+0000"

// BuildERule turns explicit YYYY-MM-DD dates into the vendor ERULE and the
// matching repeatFirstDate. Dates are sorted ascending.
func BuildERule(dates []string) (rule, firstDate string, err error) {
	if len(dates) == 0 {
		return "", "", errors.New("specific_dates must not be empty")
	}
	sorted := make([]string, 0, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return "", "", errors.Newf("invalid date %q, expected YYYY-MM-DD", d)
		}
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	compact := make([]string, len(sorted))
	for i, d := range sorted {
		compact[i] = strings.ReplaceAll(d, "-", "")
	}
	return "ERULE:NAME=CUSTOM;BYDATE=" + strings.Join(compact, ","), sorted[0] + firstDateSuffix, nil
}

// NormalizeRepeatFrom maps friendly names ("due_date", "completion date",
// "completion-date", ...) to the API values "0" and "1". Unknown values are
// returned unchanged.
func NormalizeRepeatFrom(value string) string {
	normalized := strings.ToLower(value)
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "completion_date", "completion", "1":
		return RepeatFromCompletionDate
	case "due_date", "due", "0":
		return RepeatFromDueDate
	}
	return value
}

// applyERule sets the recurrence fields of t for explicit dates.
func applyERule(t Task, dates []string) error {
	rule, first, err := BuildERule(dates)
	if err != nil {
		return err
	}
	t["repeatFlag"] = rule
	t["repeatFirstDate"] = first
	t["repeatFrom"] = RepeatFromDueDate
	return nil
}
