package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
)

// RoleCacheInvalidator drops cached roles when a role_changed event
// arrives, so role changes take effect on every replica before the cache
// TTL expires.
type RoleCacheInvalidator struct {
	queue   messagequeue.Queue
	records *RecordService
}

// NewRoleCacheInvalidator creates a RoleCacheInvalidator.
func NewRoleCacheInvalidator(q messagequeue.Queue, records *RecordService) *RoleCacheInvalidator {
	return &RoleCacheInvalidator{queue: q, records: records}
}

// Start subscribes to role changes. The returned function cancels the
// subscription.
func (r *RoleCacheInvalidator) Start(ctx context.Context) (func(), error) {
	cancel, err := r.queue.Subscribe(ctx, messagequeue.SubjectUserRoleChanged, r.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectUserRoleChanged, err)
	}
	return cancel, nil
}

func (r *RoleCacheInvalidator) handle(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.RoleChangedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal role change: %w", err)
	}
	if err := r.records.InvalidateRole(ctx, p.UserID); err != nil {
		return fmt.Errorf("invalidate role %s: %w", p.UserID, err)
	}
	slog.InfoContext(ctx, "role cache invalidated", "user_id", p.UserID, "role", p.Role)
	return nil
}
