package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
// Useful to ensure JSON serialization produces [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// dateParam converts an ISO date string into a DATE parameter. Empty or
// non-ISO strings become NULL.
func dateParam(s string) *time.Time {
	if !temporal.IsISODate(s) {
		return nil
	}
	d, err := time.Parse(temporal.ISOLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

// dateString formats a nullable DATE column as YYYY-MM-DD.
func dateString(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(temporal.ISOLayout)
}

func marshalSubTasks(subs []record.SubTask) ([]byte, error) {
	b, err := json.Marshal(orEmpty(subs))
	if err != nil {
		return nil, fmt.Errorf("marshal sub_tasks: %w", err)
	}
	return b, nil
}

// notFoundWrap checks whether err is pgx.ErrNoRows and, if so, wraps
// domain.ErrNotFound with the given message. Otherwise it wraps the
// original error.
func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// execExpectOne verifies that an Exec affected exactly one row. If not
// (and err is nil), it returns domain.ErrNotFound with the given message.
func execExpectOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return nil
}
