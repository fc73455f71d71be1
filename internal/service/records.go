package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/user"
	"github.com/Strob0t/StudyMate/internal/port/cache"
	"github.com/Strob0t/StudyMate/internal/port/database"
)

const roleKeyPrefix = "role:"

// RecordService reads a user's stored records. Every read degrades to an
// empty or zero result on store failure so a turn never fails because the
// store is unavailable.
type RecordService struct {
	store     database.Store
	roles     cache.Cache
	roleTTL   time.Duration
	taskLimit int
	quizLimit int
}

// NewRecordService creates a RecordService. roles may be nil, which
// disables role caching.
func NewRecordService(store database.Store, roles cache.Cache, roleTTL time.Duration, taskLimit, quizLimit int) *RecordService {
	if taskLimit <= 0 {
		taskLimit = 50
	}
	if quizLimit <= 0 {
		quizLimit = 10
	}
	return &RecordService{
		store:     store,
		roles:     roles,
		roleTTL:   roleTTL,
		taskLimit: taskLimit,
		quizLimit: quizLimit,
	}
}

// UserRole returns the role of userID, or user.DefaultRole when the user is
// unknown or the store fails.
func (s *RecordService) UserRole(ctx context.Context, userID string) user.Role {
	key := roleKeyPrefix + userID
	if s.roles != nil {
		if v, ok, err := s.roles.Get(ctx, key); err == nil && ok {
			return user.ParseRole(string(v))
		}
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "role lookup failed, using default", "user_id", userID, "default", user.DefaultRole, "error", err)
		return user.DefaultRole
	}
	role := user.ParseRole(string(u.Role))

	if s.roles != nil {
		if err := s.roles.Set(ctx, key, []byte(role), s.roleTTL); err != nil {
			slog.DebugContext(ctx, "role cache set failed", "user_id", userID, "error", err)
		}
	}
	return role
}

// InvalidateRole drops the cached role of userID.
func (s *RecordService) InvalidateRole(ctx context.Context, userID string) error {
	if s.roles == nil {
		return nil
	}
	return s.roles.Delete(ctx, roleKeyPrefix+userID)
}

// Tasks returns the most recently created tasks of userID, newest first.
func (s *RecordService) Tasks(ctx context.Context, userID string) []record.Task {
	tasks, err := s.store.ListTasks(ctx, userID, s.taskLimit)
	if err != nil {
		slog.ErrorContext(ctx, "fetch tasks failed", "user_id", userID, "error", err)
		return []record.Task{}
	}
	if tasks == nil {
		return []record.Task{}
	}
	return tasks
}

// QuizResults returns the most recent quiz attempts of userID.
func (s *RecordService) QuizResults(ctx context.Context, userID string) []record.QuizAttempt {
	attempts, err := s.store.ListQuizAttempts(ctx, userID, s.quizLimit)
	if err != nil {
		slog.ErrorContext(ctx, "fetch quiz attempts failed", "user_id", userID, "error", err)
		return []record.QuizAttempt{}
	}
	if attempts == nil {
		return []record.QuizAttempt{}
	}
	return attempts
}

// PomodoroStats returns the timer aggregates of userID, zeroed on failure.
func (s *RecordService) PomodoroStats(ctx context.Context, userID string) record.PomodoroStats {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "fetch pomodoro stats failed", "user_id", userID, "error", err)
		return record.PomodoroStats{}
	}
	return record.PomodoroStats{
		CompletedPomodoros: u.CompletedPomodoros,
		PresentTime:        u.PresentTime,
	}
}

// Stats combines the pomodoro aggregates and recent quiz attempts.
func (s *RecordService) Stats(ctx context.Context, userID string) record.Stats {
	return record.Stats{
		Pomodoro: s.PomodoroStats(ctx, userID),
		Quizzes:  s.QuizResults(ctx, userID),
	}
}
