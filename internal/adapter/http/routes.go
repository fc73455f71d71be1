package http

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/StudyMate/internal/domain/user"
	"github.com/Strob0t/StudyMate/internal/middleware"
	"github.com/Strob0t/StudyMate/internal/port/cache"
)

// RouteOptions configures route-level middleware.
type RouteOptions struct {
	// ChatLimiter throttles the chat endpoint; nil disables throttling.
	ChatLimiter *middleware.RateLimiter
	// IdempotencyCache stores replayable responses of mutating requests;
	// nil disables idempotency keys.
	IdempotencyCache cache.Cache
	IdempotencyTTL   time.Duration
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, opts RouteOptions) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		if opts.IdempotencyCache != nil {
			r.Use(middleware.Idempotency(opts.IdempotencyCache, opts.IdempotencyTTL))
		}

		r.Group(func(r chi.Router) {
			if opts.ChatLimiter != nil {
				r.Use(opts.ChatLimiter.Handler)
			}
			r.Post("/chat", h.Chat)
		})
		r.Post("/tasks/confirm", h.ConfirmTask)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/tasks", h.ListTasks)
			r.Get("/stats", h.GetStats)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(h.Records, "userID", user.RoleStudent))
				r.Post("/tasks", h.AddTask)
				r.Patch("/tasks/{taskID}", h.UpdateTask)
				r.Delete("/tasks/{taskID}", h.DeleteTask)
			})
		})
	})
}
