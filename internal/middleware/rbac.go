package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/StudyMate/internal/domain/user"
)

// RoleSource looks up the role of a user. Implementations fall back to the
// least privileged role when the lookup fails.
type RoleSource interface {
	UserRole(ctx context.Context, userID string) user.Role
}

// RequireRole returns middleware that restricts access to requests whose
// user, taken from the chi URL parameter param, holds one of roles.
func RequireRole(src RoleSource, param string, roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := chi.URLParam(r, param)
			if userID == "" {
				writeJSONError(w, http.StatusBadRequest, "user id is required")
				return
			}

			if role := src.UserRole(r.Context(), userID); !allowed[role] {
				writeJSONError(w, http.StatusForbidden, "forbidden: role "+string(role)+" cannot perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
