// Package task defines the study task, draft and confirmation entities.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

// Category is the list a task belongs to.
type Category string

const (
	CategoryPersonal Category = "Personal"
	CategoryWork     Category = "Work"
	CategoryStudy    Category = "Study"
)

// DefaultCategory is used when a category is absent or invalid.
const DefaultCategory = CategoryPersonal

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is used when a priority is absent or invalid.
const DefaultPriority = PriorityMedium

// Required field names reported in Draft.MissingFields.
const (
	FieldDescription = "description"
	FieldDueDate     = "dueDate"
)

var categories = []Category{CategoryPersonal, CategoryWork, CategoryStudy}

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// firstSegment keeps only the first value of a pipe-joined enumeration
// ("Personal|Work|Study"), which text generation occasionally produces.
func firstSegment(raw string) string {
	if i := strings.Index(raw, "|"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// ParseCategory matches raw against the category enumeration,
// case-insensitively and after pipe splitting.
func ParseCategory(raw string) (Category, bool) {
	v := firstSegment(raw)
	for _, c := range categories {
		if strings.EqualFold(v, string(c)) {
			return c, true
		}
	}
	return "", false
}

// CategoryOrDefault returns the parsed category or DefaultCategory.
func CategoryOrDefault(raw string) Category {
	if c, ok := ParseCategory(raw); ok {
		return c
	}
	return DefaultCategory
}

// ParsePriority matches raw against the priority enumeration,
// case-insensitively and after pipe splitting.
func ParsePriority(raw string) (Priority, bool) {
	v := firstSegment(raw)
	for _, p := range priorities {
		if strings.EqualFold(v, string(p)) {
			return p, true
		}
	}
	return "", false
}

// PriorityOrDefault returns the parsed priority or DefaultPriority.
func PriorityOrDefault(raw string) Priority {
	if p, ok := ParsePriority(raw); ok {
		return p
	}
	return DefaultPriority
}

// SubTasks is a list of subtask descriptions. It decodes from either a JSON
// array of strings or a single string.
type SubTasks []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *SubTasks) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = compact(list)
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("subTasks must be a string or a list of strings: %w", err)
	}
	*s = compact([]string{one})
	return nil
}

func compact(in []string) SubTasks {
	var out SubTasks
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Task is a complete, schedulable task. Description and DueDate are always
// set and DueDate is always an ISO calendar date.
type Task struct {
	Description string    `json:"description"`
	Category    Category  `json:"list"`
	DueDate     string    `json:"dueDate"`
	Priority    Priority  `json:"priority"`
	SubTasks    SubTasks  `json:"subTasks,omitempty"`
	Importance  bool      `json:"importance"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdDate"`
}

// New builds a Task, applying enumeration defaults. It fails when the
// description is empty or dueDate is not an ISO calendar date.
func New(description, dueDate string, category Category, priority Priority, now time.Time) (Task, error) {
	t := Task{
		Description: strings.TrimSpace(description),
		Category:    category,
		DueDate:     strings.TrimSpace(dueDate),
		Priority:    priority,
		CreatedAt:   now,
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Validate checks the Task invariants.
func (t *Task) Validate() error {
	if t.Description == "" {
		return fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	if !temporal.IsISODate(t.DueDate) {
		return fmt.Errorf("%w: dueDate must be YYYY-MM-DD, got %q", domain.ErrValidation, t.DueDate)
	}
	if _, ok := ParseCategory(string(t.Category)); !ok {
		return fmt.Errorf("%w: invalid list %q", domain.ErrValidation, t.Category)
	}
	if _, ok := ParsePriority(string(t.Priority)); !ok {
		return fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, t.Priority)
	}
	return nil
}

// Draft is a task that still lacks one or more required fields. DueDate is
// either an ISO date or the raw phrase awaiting resolution.
type Draft struct {
	Description   string   `json:"description,omitempty"`
	Category      Category `json:"list,omitempty"`
	DueDate       string   `json:"dueDate,omitempty"`
	Priority      Priority `json:"priority,omitempty"`
	SubTasks      SubTasks `json:"subTasks,omitempty"`
	MissingFields []string `json:"missingFields"`
}

// Missing computes the required fields the draft lacks from its current
// values. A due date that is still a raw phrase counts as missing.
func (d *Draft) Missing() []string {
	missing := []string{}
	if strings.TrimSpace(d.Description) == "" {
		missing = append(missing, FieldDescription)
	}
	if !temporal.IsISODate(d.DueDate) {
		missing = append(missing, FieldDueDate)
	}
	return missing
}

// Recompute replaces MissingFields with Missing().
func (d *Draft) Recompute() {
	d.MissingFields = d.Missing()
}

// Complete reports whether the draft has every required field.
func (d *Draft) Complete() bool {
	return len(d.Missing()) == 0
}

// Promote converts a complete draft into a Task.
func (d *Draft) Promote(now time.Time) (Task, error) {
	if !d.Complete() {
		return Task{}, fmt.Errorf("%w: draft is missing %s", domain.ErrValidation, strings.Join(d.Missing(), ", "))
	}
	t, err := New(d.Description, d.DueDate, d.Category, d.Priority, now)
	if err != nil {
		return Task{}, err
	}
	t.SubTasks = d.SubTasks
	return t, nil
}

// ConfirmationStatus is the lifecycle state of a Confirmation.
type ConfirmationStatus string

const (
	StatusPending   ConfirmationStatus = "pending"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusDiscarded ConfirmationStatus = "discarded"
)

// Confirmation is a user-reviewable proposal to persist a Task.
type Confirmation struct {
	ID     string             `json:"taskId"`
	Task   Task               `json:"task"`
	Status ConfirmationStatus `json:"status"`
}

// NewConfirmation creates a pending Confirmation with a fresh identifier.
func NewConfirmation(t Task) Confirmation {
	return Confirmation{
		ID:     uuid.NewString(),
		Task:   t,
		Status: StatusPending,
	}
}

// Action is the user's decision on a Confirmation.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionDiscard Action = "discard"
)

// ErrUnknownAction is returned for actions other than confirm and discard.
var ErrUnknownAction = errors.New("action must be confirm or discard")

// ParseAction validates a confirmation action.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionConfirm:
		return ActionConfirm, nil
	case ActionDiscard:
		return ActionDiscard, nil
	default:
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, ErrUnknownAction)
	}
}
