// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/user"
)

// Store is the port interface for database operations.
type Store interface {
	// Users
	GetUser(ctx context.Context, id string) (*user.User, error)
	UpsertUser(ctx context.Context, u *user.User) error
	ListUsers(ctx context.Context) ([]user.User, error)

	// Tasks
	CreateTask(ctx context.Context, t *record.Task) (*record.Task, error)
	GetTask(ctx context.Context, userID, id string) (*record.Task, error)
	// ListTasks returns at most limit tasks, newest first.
	ListTasks(ctx context.Context, userID string, limit int) ([]record.Task, error)
	UpdateTask(ctx context.Context, userID, id string, u *record.Update) (*record.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error

	// Quiz attempts
	// ListQuizAttempts returns at most limit attempts, most recent first.
	ListQuizAttempts(ctx context.Context, userID string, limit int) ([]record.QuizAttempt, error)

	Ping(ctx context.Context) error
}
