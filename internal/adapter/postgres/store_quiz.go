package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/StudyMate/internal/domain/record"
)

func (s *Store) ListQuizAttempts(ctx context.Context, userID string, limit int) ([]record.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, paper_id, subject, category, year, score, total_questions, percentage, taken_at
		FROM quiz_attempts WHERE user_id = $1 ORDER BY taken_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	defer rows.Close()

	var attempts []record.QuizAttempt
	for rows.Next() {
		var a record.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.PaperID, &a.Subject, &a.Category, &a.Year,
			&a.Score, &a.TotalQuestions, &a.Percentage, &a.TakenAt); err != nil {
			return nil, fmt.Errorf("scan quiz attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return orEmpty(attempts), rows.Err()
}
