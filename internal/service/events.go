package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
)

// publishTaskEvent publishes a task event. Publishing is best effort: the
// stored state is authoritative and a failure is only logged.
func publishTaskEvent(ctx context.Context, q messagequeue.Queue, subject string, p messagequeue.TaskEventPayload) {
	if q == nil {
		return
	}
	if p.OccurredAt == "" {
		p.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(p)
	if err != nil {
		slog.ErrorContext(ctx, "marshal task event", "subject", subject, "error", err)
		return
	}
	if err := q.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish task event failed", "subject", subject, "user_id", p.UserID, "error", err)
	}
}
