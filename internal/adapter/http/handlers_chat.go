package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/StudyMate/internal/domain/conversation"
	"github.com/Strob0t/StudyMate/internal/domain/task"
	"github.com/Strob0t/StudyMate/internal/service"
)

// Chat handles POST /api/v1/chat. The turn itself never fails; only request
// validation produces an error status.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[conversation.TurnRequest](w, r)
	if !ok {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}
	if len(req.Message) > maxMessageLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Message exceeds %d characters", maxMessageLength))
		return
	}

	slog.InfoContext(r.Context(), "processing chat turn", "user_id", req.UserID, "history", len(req.History), "pending", len(req.PendingTasks))
	writeJSON(w, http.StatusOK, h.Assistant.ProcessTurn(r.Context(), req))
}

// confirmRequest is the body of POST /api/v1/tasks/confirm.
type confirmRequest struct {
	UserID string     `json:"userId"`
	TaskID string     `json:"taskId"`
	Action string     `json:"action"`
	Task   *task.Task `json:"task,omitempty"`
}

type confirmResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// ConfirmTask handles POST /api/v1/tasks/confirm.
func (h *Handlers) ConfirmTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[confirmRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.UserID, "userId") || !requireField(w, req.TaskID, "taskId") {
		return
	}
	action, err := task.ParseAction(req.Action)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	stored, err := h.Confirmations.Confirm(r.Context(), req.UserID, service.Resolution{
		TaskID: req.TaskID,
		Action: action,
		Task:   req.Task,
	})
	if err != nil {
		writeDomainError(w, err, "confirmation not found or expired")
		return
	}

	if action == task.ActionDiscard {
		writeJSON(w, http.StatusOK, confirmResponse{Success: true, Message: "Task discarded successfully", Action: "discarded"})
		return
	}
	resp := confirmResponse{Success: stored, Message: "Task added successfully", Action: "confirmed"}
	if !stored {
		resp.Message = "Failed to add task"
	}
	writeJSON(w, http.StatusOK, resp)
}
