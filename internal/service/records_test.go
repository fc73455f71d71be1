package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/user"
	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
)

func TestUserRoleIsCached(t *testing.T) {
	store := newMockStore()
	store.users["u1"] = &user.User{ID: "u1", Role: user.RoleTeacher}
	roles := newMapCache()
	svc := NewRecordService(store, roles, time.Minute, 0, 0)
	ctx := context.Background()

	if got := svc.UserRole(ctx, "u1"); got != user.RoleTeacher {
		t.Fatalf("expected teacher, got %s", got)
	}
	if got := svc.UserRole(ctx, "u1"); got != user.RoleTeacher {
		t.Fatalf("expected cached teacher, got %s", got)
	}
	if store.getCalls != 1 {
		t.Errorf("expected 1 store lookup, got %d", store.getCalls)
	}

	store.users["u1"].Role = user.RoleStudent
	if err := svc.InvalidateRole(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if got := svc.UserRole(ctx, "u1"); got != user.RoleStudent {
		t.Errorf("expected student after invalidation, got %s", got)
	}
}

func TestUserRoleDefaultsOnFailure(t *testing.T) {
	store := newMockStore()
	svc := NewRecordService(store, nil, 0, 0, 0)
	if got := svc.UserRole(context.Background(), "missing"); got != user.DefaultRole {
		t.Errorf("expected default role for unknown user, got %s", got)
	}

	store.err = errors.New("connection reset")
	if got := svc.UserRole(context.Background(), "u1"); got != user.DefaultRole {
		t.Errorf("expected default role on store error, got %s", got)
	}
}

func TestRecordReadsDegrade(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("down")
	svc := NewRecordService(store, nil, 0, 0, 0)
	ctx := context.Background()

	if got := svc.Tasks(ctx, "u1"); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil tasks, got %v", got)
	}
	if got := svc.QuizResults(ctx, "u1"); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil quizzes, got %v", got)
	}
	if got := svc.PomodoroStats(ctx, "u1"); got != (record.PomodoroStats{}) {
		t.Errorf("expected zero stats, got %+v", got)
	}
}

func TestStats(t *testing.T) {
	store := newMockStore()
	store.users["u1"] = &user.User{ID: "u1", CompletedPomodoros: 12, PresentTime: 300}
	store.quizzes = []record.QuizAttempt{
		{ID: "q1", UserID: "u1", Subject: "Physics", Score: 40, TotalQuestions: 50, Percentage: 80},
		{ID: "q2", UserID: "other"},
	}
	svc := NewRecordService(store, nil, 0, 0, 0)

	got := svc.Stats(context.Background(), "u1")
	if got.Pomodoro.CompletedPomodoros != 12 || got.Pomodoro.PresentTime != 300 {
		t.Errorf("unexpected pomodoro stats: %+v", got.Pomodoro)
	}
	if len(got.Quizzes) != 1 || got.Quizzes[0].ID != "q1" {
		t.Errorf("unexpected quizzes: %+v", got.Quizzes)
	}
}

func TestRoleCacheInvalidator(t *testing.T) {
	store := newMockStore()
	store.users["u1"] = &user.User{ID: "u1", Role: user.RoleTeacher}
	roles := newMapCache()
	svc := NewRecordService(store, roles, time.Minute, 0, 0)
	ctx := context.Background()
	svc.UserRole(ctx, "u1")

	inv := NewRoleCacheInvalidator(&mockQueue{}, svc)
	err := inv.handle(ctx, messagequeue.SubjectUserRoleChanged, []byte(`{"user_id":"u1","role":"student"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok, _ := roles.Get(ctx, roleKeyPrefix+"u1"); ok {
		t.Error("expected cached role to be dropped")
	}

	if err := inv.handle(ctx, messagequeue.SubjectUserRoleChanged, []byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
