package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/StudyMate/internal/adapter/otel"
	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
	"github.com/Strob0t/StudyMate/internal/port/cache"
	"github.com/Strob0t/StudyMate/internal/port/database"
	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
)

// ConfirmationStore keeps proposed confirmations until the user resolves
// them. Entries are scoped to their user and expire after ttl.
type ConfirmationStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewConfirmationStore creates a ConfirmationStore on c.
func NewConfirmationStore(c cache.Cache, ttl time.Duration) *ConfirmationStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ConfirmationStore{cache: c, ttl: ttl}
}

func confirmationKey(userID, id string) string {
	return "confirmation:" + userID + ":" + id
}

// Put stores c for userID.
func (s *ConfirmationStore) Put(ctx context.Context, userID string, c *task.Confirmation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}
	return s.cache.Set(ctx, confirmationKey(userID, c.ID), data, s.ttl)
}

// Get returns the pending confirmation id of userID. Missing, expired and
// undecodable entries all report false.
func (s *ConfirmationStore) Get(ctx context.Context, userID, id string) (*task.Confirmation, bool) {
	data, ok, err := s.cache.Get(ctx, confirmationKey(userID, id))
	if err != nil {
		slog.WarnContext(ctx, "confirmation lookup failed", "user_id", userID, "confirmation_id", id, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var c task.Confirmation
	if err := json.Unmarshal(data, &c); err != nil {
		slog.WarnContext(ctx, "corrupt confirmation entry", "confirmation_id", id, "error", err)
		return nil, false
	}
	return &c, true
}

// Delete removes the confirmation id of userID.
func (s *ConfirmationStore) Delete(ctx context.Context, userID, id string) error {
	return s.cache.Delete(ctx, confirmationKey(userID, id))
}

// Resolution is the user's decision on one proposed task. Task is the
// payload echoed back by the client; it is only used when the server no
// longer holds the confirmation.
type Resolution struct {
	TaskID string      `json:"taskId"`
	Action task.Action `json:"action"`
	Task   *task.Task  `json:"task,omitempty"`
}

// ConfirmationService persists or discards proposed tasks.
type ConfirmationService struct {
	store   database.Store
	pending *ConfirmationStore
	records *RecordService
	queue   messagequeue.Queue
	metrics *otel.Metrics
	now     func() time.Time
}

// NewConfirmationService creates a ConfirmationService.
func NewConfirmationService(store database.Store, pending *ConfirmationStore, records *RecordService, q messagequeue.Queue, metrics *otel.Metrics) *ConfirmationService {
	return &ConfirmationService{
		store:   store,
		pending: pending,
		records: records,
		queue:   q,
		metrics: metrics,
		now:     time.Now,
	}
}

// Confirm applies r for userID. Discarding always succeeds. Confirming
// requires the student role and a known confirmation or a valid task
// payload; the returned bool reports whether the task was stored.
func (s *ConfirmationService) Confirm(ctx context.Context, userID string, r Resolution) (bool, error) {
	if userID == "" || r.TaskID == "" {
		return false, fmt.Errorf("%w: userId and taskId are required", domain.ErrValidation)
	}

	switch r.Action {
	case task.ActionDiscard:
		return s.discard(ctx, userID, r), nil
	case task.ActionConfirm:
	default:
		return false, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, r.Action)
	}

	role := s.records.UserRole(ctx, userID)
	if !role.CanCreateTasks() {
		s.metrics.RecordConfirmation(ctx, string(task.ActionConfirm), false)
		return false, fmt.Errorf("%w: role %s cannot create tasks", domain.ErrForbidden, role)
	}

	t, err := s.resolveTask(ctx, userID, r)
	if err != nil {
		return false, err
	}

	rec := record.FromTask(userID, t)
	rec.ID = r.TaskID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	stored, err := s.store.CreateTask(ctx, &rec)
	if err != nil {
		slog.ErrorContext(ctx, "insert confirmed task failed", "user_id", userID, "confirmation_id", r.TaskID, "error", err)
		s.metrics.RecordConfirmation(ctx, string(task.ActionConfirm), false)
		return false, nil
	}

	if err := s.pending.Delete(ctx, userID, r.TaskID); err != nil {
		slog.WarnContext(ctx, "delete resolved confirmation failed", "confirmation_id", r.TaskID, "error", err)
	}
	publishTaskEvent(ctx, s.queue, messagequeue.SubjectTaskConfirmed, messagequeue.TaskEventPayload{
		UserID:         userID,
		TaskID:         stored.ID,
		ConfirmationID: r.TaskID,
		Description:    stored.Description,
		DueDate:        stored.DueDate,
	})
	s.metrics.RecordConfirmation(ctx, string(task.ActionConfirm), true)
	slog.InfoContext(ctx, "task confirmed", "user_id", userID, "task_id", stored.ID)
	return true, nil
}

// resolveTask prefers the server-held confirmation over the client payload.
func (s *ConfirmationService) resolveTask(ctx context.Context, userID string, r Resolution) (*task.Task, error) {
	if c, ok := s.pending.Get(ctx, userID, r.TaskID); ok {
		return &c.Task, nil
	}
	if r.Task == nil {
		return nil, fmt.Errorf("confirmation %s: %w", r.TaskID, domain.ErrNotFound)
	}
	t := *r.Task
	if t.Category == "" {
		t.Category = task.DefaultCategory
	}
	if t.Priority == "" {
		t.Priority = task.DefaultPriority
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *ConfirmationService) discard(ctx context.Context, userID string, r Resolution) bool {
	if err := s.pending.Delete(ctx, userID, r.TaskID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "delete discarded confirmation failed", "confirmation_id", r.TaskID, "error", err)
	}
	publishTaskEvent(ctx, s.queue, messagequeue.SubjectTaskDiscarded, messagequeue.TaskEventPayload{
		UserID:         userID,
		ConfirmationID: r.TaskID,
	})
	s.metrics.RecordConfirmation(ctx, string(task.ActionDiscard), true)
	return true
}
