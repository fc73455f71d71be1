package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/StudyMate/internal/domain/task"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

// ExtractedTask is a complete-task candidate as emitted by task extraction.
// Every field is unvalidated text.
type ExtractedTask struct {
	Description string        `json:"description"`
	List        string        `json:"list"`
	DueDate     string        `json:"dueDate"`
	SubTasks    task.SubTasks `json:"subTasks"`
	Priority    string        `json:"priority"`
	Importance  bool          `json:"importance"`
}

// ExtractedDraft is an incomplete-task candidate as emitted by task
// extraction. Its missingFields are ignored and always recomputed.
type ExtractedDraft struct {
	Description   string        `json:"description"`
	List          string        `json:"list"`
	DueDate       string        `json:"dueDate"`
	SubTasks      task.SubTasks `json:"subTasks"`
	Priority      string        `json:"priority"`
	MissingFields []string      `json:"missingFields"`
}

// MergeResult partitions the candidates of one turn.
type MergeResult struct {
	Tasks         []task.Task
	Drafts        []task.Draft
	Confirmations []task.Confirmation
	Warnings      []string
}

// CompletionMerger validates and normalizes extraction output and splits it
// into complete tasks and drafts that still miss required fields.
type CompletionMerger struct {
	resolver *temporal.Resolver
}

// NewCompletionMerger creates a CompletionMerger resolving dates with r.
func NewCompletionMerger(r *temporal.Resolver) *CompletionMerger {
	return &CompletionMerger{resolver: r}
}

// Merge promotes every candidate that has a description and a resolvable
// due date, and keeps every other non-empty candidate as a draft with its
// missing fields recomputed. Carried drafts only contribute list, priority
// and subtasks to candidates that repeat their description.
func (m *CompletionMerger) Merge(ref time.Time, carried []task.Draft, tasks []ExtractedTask, drafts []ExtractedDraft) MergeResult {
	res := MergeResult{
		Tasks:         []task.Task{},
		Drafts:        []task.Draft{},
		Confirmations: []task.Confirmation{},
	}
	promoted := make(map[string]bool)

	accept := func(d task.Draft, importance bool) bool {
		t, ok := m.promote(ref, d, importance)
		if !ok {
			return false
		}
		res.Tasks = append(res.Tasks, t)
		res.Confirmations = append(res.Confirmations, task.NewConfirmation(t))
		promoted[descKey(t.Description)] = true
		return true
	}

	for _, c := range tasks {
		d := m.normalize(ref, c.Description, c.List, c.DueDate, c.Priority, c.SubTasks, carried)
		if promoted[descKey(d.Description)] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("duplicate task %q dropped", d.Description))
			continue
		}
		if accept(d, c.Importance) {
			continue
		}
		d.Recompute()
		res.Warnings = append(res.Warnings, fmt.Sprintf("task %q kept as draft: missing %s",
			d.Description, strings.Join(d.MissingFields, ", ")))
		res.Drafts = append(res.Drafts, d)
	}

	for _, c := range drafts {
		d := m.normalize(ref, c.Description, c.List, c.DueDate, c.Priority, c.SubTasks, carried)
		if d.Description == "" && d.DueDate == "" {
			res.Warnings = append(res.Warnings, "empty pending task dropped")
			continue
		}
		if promoted[descKey(d.Description)] {
			continue
		}
		if accept(d, false) {
			continue
		}
		d.Recompute()
		res.Drafts = append(res.Drafts, d)
	}

	return res
}

// normalize builds a draft from raw candidate fields: enumerations are
// parsed (invalid values become unset) and the due date is resolved when
// possible, otherwise the raw phrase is kept.
func (m *CompletionMerger) normalize(ref time.Time, desc, list, due, priority string, subs task.SubTasks, carried []task.Draft) task.Draft {
	d := task.Draft{
		Description: nullText(desc),
		DueDate:     nullText(due),
		SubTasks:    subs,
	}
	if c, ok := task.ParseCategory(list); ok {
		d.Category = c
	}
	if p, ok := task.ParsePriority(priority); ok {
		d.Priority = p
	}
	if d.DueDate != "" {
		if iso, err := m.resolver.Resolve(d.DueDate, ref); err == nil {
			d.DueDate = iso
		}
	}

	if prev := findCarried(carried, d.Description); prev != nil {
		if d.Category == "" {
			d.Category = prev.Category
		}
		if d.Priority == "" {
			d.Priority = prev.Priority
		}
		if len(d.SubTasks) == 0 {
			d.SubTasks = prev.SubTasks
		}
	}
	return d
}

// promote converts a normalized draft into a Task when it has a description
// and a resolved due date. Unset enumerations take their defaults.
func (m *CompletionMerger) promote(ref time.Time, d task.Draft, importance bool) (task.Task, bool) {
	if d.Description == "" || d.DueDate == "" {
		return task.Task{}, false
	}
	if !temporal.IsISODate(d.DueDate) {
		return task.Task{}, false
	}
	t, err := task.New(d.Description, d.DueDate, d.Category, d.Priority, ref)
	if err != nil {
		return task.Task{}, false
	}
	t.SubTasks = d.SubTasks
	t.Importance = importance
	return t, true
}

func findCarried(carried []task.Draft, desc string) *task.Draft {
	if desc == "" {
		return nil
	}
	key := descKey(desc)
	for i := range carried {
		if descKey(carried[i].Description) == key {
			return &carried[i]
		}
	}
	return nil
}

// nullText trims s and maps textual nulls emitted by generation to "".
func nullText(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return s
}

func descKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
