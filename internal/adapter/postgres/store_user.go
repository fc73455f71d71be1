package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/StudyMate/internal/domain/user"
)

const userColumns = `id, role, completed_pomodoros, present_time_minutes, created_at, updated_at`

func scanUser(row scannable) (user.User, error) {
	var u user.User
	var role string
	err := row.Scan(&u.ID, &role, &u.CompletedPomodoros, &u.PresentTime, &u.CreatedAt, &u.UpdatedAt)
	u.Role = user.ParseRole(role)
	return u, err
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return &u, nil
}

// UpsertUser inserts the profile or overwrites role and timer aggregates of
// an existing one. CreatedAt and UpdatedAt are filled from the database.
func (s *Store) UpsertUser(ctx context.Context, u *user.User) error {
	if u.Role == "" {
		u.Role = user.DefaultRole
	}
	now := time.Now().UTC()

	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, role, completed_pomodoros, present_time_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			completed_pomodoros = EXCLUDED.completed_pomodoros,
			present_time_minutes = EXCLUDED.present_time_minutes,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`,
		u.ID, string(u.Role), u.CompletedPomodoros, u.PresentTime, now,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return orEmpty(users), rows.Err()
}
