package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Strob0t/StudyMate/internal/domain"
	"github.com/Strob0t/StudyMate/internal/domain/query"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
)

type addTaskResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Task    *record.Task `json:"task"`
}

// AddTask handles POST /api/v1/users/{userID}/tasks.
func (h *Handlers) AddTask(w http.ResponseWriter, r *http.Request) {
	userID := urlParam(r, "userID")
	t, ok := readJSON[task.Task](w, r)
	if !ok {
		return
	}
	stored, err := h.Tasks.Add(r.Context(), userID, t)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, addTaskResponse{Success: true, Message: "Task added successfully", Task: stored})
}

// ListTasks handles GET /api/v1/users/{userID}/tasks.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	d, err := descriptorFromQuery(r)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	tasks, err := h.Tasks.List(r.Context(), urlParam(r, "userID"), d)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// UpdateTask handles PATCH /api/v1/users/{userID}/tasks/{taskID}.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	u, ok := readJSON[record.Update](w, r)
	if !ok {
		return
	}
	updated, err := h.Tasks.Update(r.Context(), urlParam(r, "userID"), urlParam(r, "taskID"), u)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTask handles DELETE /api/v1/users/{userID}/tasks/{taskID}.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), urlParam(r, "userID"), urlParam(r, "taskID")); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /api/v1/users/{userID}/stats.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Records.Stats(r.Context(), urlParam(r, "userID")))
}

// descriptorFromQuery builds a task filter from ?start=&end=&completed=
// &priority=&category= parameters.
func descriptorFromQuery(r *http.Request) (query.Descriptor, error) {
	q := r.URL.Query()
	d := query.Descriptor{
		RecordType: query.RecordTasks,
		StartDate:  q.Get("start"),
		EndDate:    q.Get("end"),
	}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return d, fmt.Errorf("%w: completed must be true or false", domain.ErrValidation)
		}
		d.Completed = &b
	}
	if v := q.Get("priority"); v != "" {
		p, ok := task.ParsePriority(v)
		if !ok {
			return d, fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, v)
		}
		d.Priority = &p
	}
	if v := q.Get("category"); v != "" {
		c, ok := task.ParseCategory(v)
		if !ok {
			return d, fmt.Errorf("%w: invalid list %q", domain.ErrValidation, v)
		}
		d.Category = &c
	}
	return d, nil
}
