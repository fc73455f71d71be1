package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/StudyMate/internal/domain/user"
	"github.com/Strob0t/StudyMate/internal/middleware"
)

type staticRoles map[string]user.Role

func (s staticRoles) UserRole(_ context.Context, id string) user.Role {
	if r, ok := s[id]; ok {
		return r
	}
	return user.DefaultRole
}

func newRoleRouter(src middleware.RoleSource) http.Handler {
	r := chi.NewRouter()
	r.With(middleware.RequireRole(src, "userID", user.RoleStudent)).
		Post("/users/{userID}/tasks", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
	return r
}

func TestRequireRole(t *testing.T) {
	router := newRoleRouter(staticRoles{"s1": user.RoleStudent, "t1": user.RoleTeacher, "a1": user.RoleAdmin})

	tests := []struct {
		userID string
		want   int
	}{
		{"s1", http.StatusCreated},
		{"t1", http.StatusForbidden},
		{"a1", http.StatusForbidden},
		{"unknown", http.StatusCreated}, // defaults to student
	}
	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/users/"+tt.userID+"/tasks", http.NoBody)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireRole_ForbiddenBodyIsJSON(t *testing.T) {
	router := newRoleRouter(staticRoles{"t1": user.RoleTeacher})
	req := httptest.NewRequest(http.MethodPost, "/users/t1/tasks", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if body := rec.Body.String(); body != `{"error":"forbidden: role teacher cannot perform this action"}` {
		t.Errorf("unexpected body %s", body)
	}
}
