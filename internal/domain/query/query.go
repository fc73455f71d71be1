// Package query describes record queries derived from analytical questions
// and evaluates them in memory against a user's stored tasks.
package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

// RecordType selects which record collection a query targets.
type RecordType string

const (
	RecordTasks    RecordType = "tasks"
	RecordPomodoro RecordType = "pomodoro"
	RecordQuiz     RecordType = "quiz"
)

// ParseRecordType matches s case-insensitively. Unknown values yield false.
func ParseRecordType(s string) (RecordType, bool) {
	switch RecordType(strings.ToLower(strings.TrimSpace(s))) {
	case RecordTasks, "task", "":
		return RecordTasks, true
	case RecordPomodoro, "timer", "focus":
		return RecordPomodoro, true
	case RecordQuiz, "quizzes":
		return RecordQuiz, true
	}
	return "", false
}

// Descriptor is a structured filter over a user's records. Empty dates and
// nil predicates mean "no constraint".
type Descriptor struct {
	RecordType RecordType     `json:"recordType"`
	StartDate  string         `json:"startDate,omitempty"`
	EndDate    string         `json:"endDate,omitempty"`
	Completed  *bool          `json:"completed"`
	Priority   *task.Priority `json:"priority,omitempty"`
	Category   *task.Category `json:"list,omitempty"`
	Important  *bool          `json:"important,omitempty"`
}

// HasDateRange reports whether either bound is set.
func (d *Descriptor) HasDateRange() bool {
	return d.StartDate != "" || d.EndDate != ""
}

// Validate checks that the bounds are ISO dates in order and that the
// record type is known.
func (d *Descriptor) Validate() error {
	if _, ok := ParseRecordType(string(d.RecordType)); !ok {
		return fmt.Errorf("%w: unknown record type %q", domain.ErrValidation, d.RecordType)
	}
	if d.StartDate != "" && !temporal.IsISODate(d.StartDate) {
		return fmt.Errorf("%w: startDate must be YYYY-MM-DD, got %q", domain.ErrValidation, d.StartDate)
	}
	if d.EndDate != "" && !temporal.IsISODate(d.EndDate) {
		return fmt.Errorf("%w: endDate must be YYYY-MM-DD, got %q", domain.ErrValidation, d.EndDate)
	}
	// ISO dates compare lexically.
	if d.StartDate != "" && d.EndDate != "" && d.StartDate > d.EndDate {
		return fmt.Errorf("%w: startDate %s is after endDate %s", domain.ErrValidation, d.StartDate, d.EndDate)
	}
	return nil
}

// Matches reports whether r satisfies every set predicate of d.
func (d *Descriptor) Matches(r *record.Task) bool {
	if d.HasDateRange() {
		if r.DueDate == "" {
			return false
		}
		if d.StartDate != "" && r.DueDate < d.StartDate {
			return false
		}
		if d.EndDate != "" && r.DueDate > d.EndDate {
			return false
		}
	}
	if d.Completed != nil && r.Completed != *d.Completed {
		return false
	}
	if d.Priority != nil && r.Priority != *d.Priority {
		return false
	}
	if d.Category != nil && r.Category != *d.Category {
		return false
	}
	if d.Important != nil && r.Importance != *d.Important {
		return false
	}
	return true
}

// Apply returns the records matching d, ordered by due date ascending with
// dateless records last. Ties keep their input order. records is not
// modified.
func Apply(records []record.Task, d Descriptor) []record.Task {
	out := make([]record.Task, 0, len(records))
	for i := range records {
		if d.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	slices.SortStableFunc(out, compareDue)
	return out
}

func compareDue(a, b record.Task) int {
	switch {
	case a.DueDate == b.DueDate:
		return 0
	case a.DueDate == "":
		return 1
	case b.DueDate == "":
		return -1
	default:
		return strings.Compare(a.DueDate, b.DueDate)
	}
}
