package http

import (
	"context"

	"github.com/Strob0t/StudyMate/internal/service"
)

// maxMessageLength bounds a single chat message in bytes.
const maxMessageLength = 4000

// HealthCheck reports the status of one backing dependency.
type HealthCheck func(ctx context.Context) error

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Assistant     *service.AssistantService
	Confirmations *service.ConfirmationService
	Tasks         *service.TaskService
	Records       *service.RecordService
	// HealthChecks are keyed by dependency name ("postgres", "nats", "llm").
	HealthChecks map[string]HealthCheck
}
