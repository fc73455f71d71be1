// Package record holds the stored, per-user records the assistant reads back:
// persisted tasks, quiz attempts and pomodoro aggregates.
package record

import (
	"time"

	"github.com/Strob0t/StudyMate/internal/domain/task"
)

// SubTask is a persisted subtask entry.
type SubTask struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Task is a task as stored for a user. Unlike task.Task, DueDate may be
// empty for records created outside the assistant.
type Task struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	Description string        `json:"description"`
	Category    task.Category `json:"list"`
	DueDate     string        `json:"dueDate,omitempty"`
	Priority    task.Priority `json:"priority"`
	SubTasks    []SubTask     `json:"subTasks"`
	Importance  bool          `json:"importance"`
	Completed   bool          `json:"completed"`
	CreatedAt   time.Time     `json:"createdDate"`
}

// FromTask converts a confirmed task into its stored form.
func FromTask(userID string, t *task.Task) Task {
	rec := Task{
		UserID:      userID,
		Description: t.Description,
		Category:    t.Category,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Importance:  t.Importance,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
	}
	if len(t.SubTasks) > 0 {
		rec.SubTasks = make([]SubTask, 0, len(t.SubTasks))
		for _, s := range t.SubTasks {
			rec.SubTasks = append(rec.SubTasks, SubTask{Description: s})
		}
	}
	return rec
}

// Update is a partial modification of a stored task. Nil fields are left
// unchanged.
type Update struct {
	Description *string        `json:"description,omitempty"`
	Category    *task.Category `json:"list,omitempty"`
	DueDate     *string        `json:"dueDate,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Importance  *bool          `json:"importance,omitempty"`
	Completed   *bool          `json:"completed,omitempty"`
}

// Apply writes the non-nil fields of u onto t.
func (u *Update) Apply(t *Task) {
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Importance != nil {
		t.Importance = *u.Importance
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
}

// QuizAttempt is one completed quiz paper.
type QuizAttempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	PaperID        string    `json:"paperId"`
	Subject        string    `json:"subject"`
	Category       string    `json:"category"`
	Year           string    `json:"year"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     float64   `json:"percentage"`
	TakenAt        time.Time `json:"timestamp"`
}

// PomodoroStats are the timer aggregates kept on the user profile.
// PresentTime is in minutes.
type PomodoroStats struct {
	CompletedPomodoros int `json:"completedPomodoros"`
	PresentTime        int `json:"presentTime"`
}

// Stats combines the aggregates returned by the stats endpoint.
type Stats struct {
	Pomodoro PomodoroStats `json:"pomodoro"`
	Quizzes  []QuizAttempt `json:"quizzes"`
}
