package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
)

const taskColumns = `id, user_id, description, due_date, priority, category, completed, importance, sub_tasks, created_at`

func scanTask(row scannable) (record.Task, error) {
	var (
		t        record.Task
		due      *time.Time
		priority string
		category string
		subsJSON []byte
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Description, &due, &priority, &category,
		&t.Completed, &t.Importance, &subsJSON, &t.CreatedAt); err != nil {
		return t, err
	}
	t.DueDate = dateString(due)
	t.Priority = task.PriorityOrDefault(priority)
	t.Category = task.CategoryOrDefault(category)
	if len(subsJSON) > 0 {
		if err := json.Unmarshal(subsJSON, &t.SubTasks); err != nil {
			return t, fmt.Errorf("unmarshal sub_tasks: %w", err)
		}
	}
	t.SubTasks = orEmpty(t.SubTasks)
	return t, nil
}

// CreateTask inserts t and returns the stored row. A missing ID or
// CreatedAt is generated.
func (s *Store) CreateTask(ctx context.Context, t *record.Task) (*record.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	subs, err := marshalSubTasks(t.SubTasks)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, user_id, description, due_date, priority, category, completed, importance, sub_tasks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+taskColumns,
		t.ID, t.UserID, t.Description, dateParam(t.DueDate),
		string(task.PriorityOrDefault(string(t.Priority))),
		string(task.CategoryOrDefault(string(t.Category))),
		t.Completed, t.Importance, subs, t.CreatedAt,
	)
	created, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return &created, nil
}

func (s *Store) GetTask(ctx context.Context, userID, id string) (*record.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)

	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string, limit int) ([]record.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []record.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return orEmpty(tasks), rows.Err()
}

// UpdateTask applies u to the stored task inside a transaction and returns
// the updated row.
func (s *Store) UpdateTask(ctx context.Context, userID, id string, u *record.Update) (*record.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	current, err := scanTask(tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID))
	if err != nil {
		return nil, notFoundWrap(err, "update task %s", id)
	}
	u.Apply(&current)

	updated, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks SET description = $3, due_date = $4, priority = $5, category = $6,
			completed = $7, importance = $8
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		id, userID, current.Description, dateParam(current.DueDate),
		string(current.Priority), string(current.Category),
		current.Completed, current.Importance,
	))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update task %s: %w", id, err)
	}
	return &updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	return execExpectOne(tag, err, "delete task %s", id)
}
