package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/query"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
	"github.com/Strob0t/StudyMate/internal/port/database"
	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

// TaskService handles direct task management outside the conversation,
// publishing an event for every change.
type TaskService struct {
	store   database.Store
	records *RecordService
	queue   messagequeue.Queue
	now     func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store database.Store, records *RecordService, queue messagequeue.Queue) *TaskService {
	return &TaskService{store: store, records: records, queue: queue, now: time.Now}
}

// List returns the tasks of userID matching d, ordered by due date.
func (s *TaskService) List(ctx context.Context, userID string, d query.Descriptor) ([]record.Task, error) {
	d.RecordType = query.RecordTasks
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return query.Apply(s.records.Tasks(ctx, userID), d), nil
}

// Add validates t and stores it for userID.
func (s *TaskService) Add(ctx context.Context, userID string, t task.Task) (*record.Task, error) {
	if c, ok := task.ParseCategory(string(t.Category)); ok {
		t.Category = c
	}
	if p, ok := task.ParsePriority(string(t.Priority)); ok {
		t.Priority = p
	}
	nt, err := task.New(t.Description, t.DueDate, t.Category, t.Priority, s.now())
	if err != nil {
		return nil, err
	}
	nt.SubTasks = t.SubTasks
	nt.Importance = t.Importance
	nt.Completed = t.Completed

	rec := record.FromTask(userID, &nt)
	stored, err := s.store.CreateTask(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	publishTaskEvent(ctx, s.queue, messagequeue.SubjectTaskConfirmed, messagequeue.TaskEventPayload{
		UserID:      userID,
		TaskID:      stored.ID,
		Description: stored.Description,
		DueDate:     stored.DueDate,
	})
	return stored, nil
}

// Update applies the non-nil fields of u to task id of userID.
func (s *TaskService) Update(ctx context.Context, userID, id string, u record.Update) (*record.Task, error) {
	if err := validateUpdate(&u); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateTask(ctx, userID, id, &u)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	publishTaskEvent(ctx, s.queue, messagequeue.SubjectTaskUpdated, messagequeue.TaskEventPayload{
		UserID:      userID,
		TaskID:      updated.ID,
		Description: updated.Description,
		DueDate:     updated.DueDate,
	})
	return updated, nil
}

// Delete removes task id of userID.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTask(ctx, userID, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	publishTaskEvent(ctx, s.queue, messagequeue.SubjectTaskDeleted, messagequeue.TaskEventPayload{
		UserID: userID,
		TaskID: id,
	})
	slog.InfoContext(ctx, "task deleted", "user_id", userID, "task_id", id)
	return nil
}

// validateUpdate normalizes enumerations in place and rejects invalid
// values. An empty due date clears it.
func validateUpdate(u *record.Update) error {
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		if d == "" {
			return fmt.Errorf("%w: description must not be empty", domain.ErrValidation)
		}
		u.Description = &d
	}
	if u.DueDate != nil && *u.DueDate != "" && !temporal.IsISODate(*u.DueDate) {
		return fmt.Errorf("%w: dueDate must be YYYY-MM-DD, got %q", domain.ErrValidation, *u.DueDate)
	}
	if u.Category != nil {
		c, ok := task.ParseCategory(string(*u.Category))
		if !ok {
			return fmt.Errorf("%w: invalid list %q", domain.ErrValidation, *u.Category)
		}
		u.Category = &c
	}
	if u.Priority != nil {
		p, ok := task.ParsePriority(string(*u.Priority))
		if !ok {
			return fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, *u.Priority)
		}
		u.Priority = &p
	}
	return nil
}
