package messagequeue

// TaskEventPayload is published whenever a stored task changes or a
// confirmation is resolved.
type TaskEventPayload struct {
	UserID         string `json:"user_id"`
	TaskID         string `json:"task_id,omitempty"`
	ConfirmationID string `json:"confirmation_id,omitempty"`
	Description    string `json:"description,omitempty"`
	DueDate        string `json:"due_date,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

// RoleChangedPayload is published when an administrator changes a user's
// role.
type RoleChangedPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
