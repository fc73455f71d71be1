package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errMissingUserID = errors.New("user_id is required")

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectTaskConfirmed, SubjectTaskDiscarded, SubjectTaskUpdated, SubjectTaskDeleted:
		var p TaskEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.UserID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errMissingUserID)
		}
	case SubjectUserRoleChanged:
		var p RoleChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.UserID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errMissingUserID)
		}
	}
	return nil
}
