package query

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
)

func ptr[T any](v T) *T { return &v }

func dueDates(recs []record.Task) []string {
	out := make([]string, len(recs))
	for i := range recs {
		out[i] = recs[i].DueDate
	}
	return out
}

func TestApplySortsDatelessLast(t *testing.T) {
	recs := []record.Task{
		{ID: "a", DueDate: "2025-11-20"},
		{ID: "b", DueDate: "2025-11-18"},
		{ID: "c"},
	}
	got := Apply(recs, Descriptor{RecordType: RecordTasks})
	if diff := cmp.Diff([]string{"2025-11-18", "2025-11-20", ""}, dueDates(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if recs[0].ID != "a" {
		t.Error("Apply must not reorder its input")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	recs := []record.Task{
		{ID: "1", DueDate: "2025-12-01"},
		{ID: "2"},
		{ID: "3", DueDate: "2025-11-01"},
		{ID: "4", DueDate: "2025-12-01"},
		{ID: "5"},
	}
	d := Descriptor{RecordType: RecordTasks}
	first := Apply(recs, d)
	second := Apply(first, d)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass changed the order (-first +second):\n%s", diff)
	}
	// Ties keep input order.
	var ids []string
	for _, r := range first {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"3", "1", "4", "2", "5"}, ids); diff != "" {
		t.Errorf("stable order mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDateRangeExcludesDateless(t *testing.T) {
	recs := []record.Task{
		{ID: "early", DueDate: "2025-11-01"},
		{ID: "in", DueDate: "2025-11-15"},
		{ID: "late", DueDate: "2025-12-01"},
		{ID: "none"},
	}
	tests := []struct {
		name string
		d    Descriptor
		want []string
	}{
		{"both bounds", Descriptor{StartDate: "2025-11-10", EndDate: "2025-11-20"}, []string{"in"}},
		{"start only", Descriptor{StartDate: "2025-11-10"}, []string{"in", "late"}},
		{"end only", Descriptor{EndDate: "2025-11-15"}, []string{"early", "in"}},
		{"inclusive bounds", Descriptor{StartDate: "2025-11-15", EndDate: "2025-11-15"}, []string{"in"}},
		{"no bounds", Descriptor{}, []string{"early", "in", "late", "none"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, r := range Apply(recs, tt.d) {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyPredicatesAreANDed(t *testing.T) {
	recs := []record.Task{
		{ID: "1", Completed: false, Priority: task.PriorityHigh, Category: task.CategoryStudy, Importance: true},
		{ID: "2", Completed: false, Priority: task.PriorityHigh, Category: task.CategoryWork},
		{ID: "3", Completed: true, Priority: task.PriorityHigh, Category: task.CategoryStudy},
		{ID: "4", Completed: false, Priority: task.PriorityLow, Category: task.CategoryStudy},
	}
	d := Descriptor{
		Completed: ptr(false),
		Priority:  ptr(task.PriorityHigh),
		Category:  ptr(task.CategoryStudy),
	}
	got := Apply(recs, d)
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected only record 1, got %+v", got)
	}

	d.Important = ptr(false)
	if got := Apply(recs, d); len(got) != 0 {
		t.Fatalf("expected no records, got %+v", got)
	}
}

func TestOverdueReturnsOnlyIncomplete(t *testing.T) {
	recs := []record.Task{
		{ID: "open", DueDate: "2025-01-01", Completed: false},
		{ID: "done", DueDate: "2025-01-01", Completed: true},
	}
	d := Descriptor{RecordType: RecordTasks, EndDate: "2025-11-13", Completed: ptr(false)}
	got := Apply(recs, d)
	if len(got) != 1 || got[0].ID != "open" {
		t.Fatalf("expected only the open record, got %+v", got)
	}
}

func TestValidate(t *testing.T) {
	valid := Descriptor{RecordType: RecordTasks, StartDate: "2025-11-01", EndDate: "2025-11-30"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []Descriptor{
		{RecordType: "grades"},
		{RecordType: RecordTasks, StartDate: "tomorrow"},
		{RecordType: RecordTasks, EndDate: "2025-02-30"},
		{RecordType: RecordTasks, StartDate: "2025-12-01", EndDate: "2025-11-01"},
	}
	for _, d := range bad {
		if err := d.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Validate(%+v) = %v, want ErrValidation", d, err)
		}
	}
}

func TestParseRecordType(t *testing.T) {
	for in, want := range map[string]RecordType{"": RecordTasks, "Tasks": RecordTasks, "quiz": RecordQuiz, "timer": RecordPomodoro} {
		if got, ok := ParseRecordType(in); !ok || got != want {
			t.Errorf("ParseRecordType(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseRecordType("grades"); ok {
		t.Error("expected unknown record type")
	}
}
