// Package conversation defines the values exchanged with the turn
// orchestrator.
package conversation

import (
	"github.com/Strob0t/StudyMate/internal/domain/intent"
	"github.com/Strob0t/StudyMate/internal/domain/task"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the recent conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Window returns at most the last n messages of history.
func Window(history []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// TurnRequest is the input to one conversational turn. PendingTasks are the
// drafts returned by the previous turn; the caller owns their persistence.
type TurnRequest struct {
	Message      string       `json:"message"`
	UserID       string       `json:"userId"`
	SessionID    string       `json:"sessionId,omitempty"`
	History      []Message    `json:"conversationHistory,omitempty"`
	PendingTasks []task.Draft `json:"pendingTasks,omitempty"`
}

// TurnResult is the outcome of one turn. It is always well formed, even when
// a collaborator failed.
type TurnResult struct {
	Response          string              `json:"response"`
	Tasks             []task.Task         `json:"tasks"`
	PendingTasks      []task.Draft        `json:"pendingTasks"`
	TaskConfirmations []task.Confirmation `json:"taskConfirmations"`
	NeedsFollowUp     bool                `json:"needsFollowUp"`
	FollowUpQuestion  string              `json:"followUpQuestion,omitempty"`
	SessionID         string              `json:"sessionId"`
	IntentType        intent.Intent       `json:"intentType"`
}

// NewTurnResult returns a result with empty, non-nil collections so that
// they encode as [] rather than null.
func NewTurnResult(sessionID string) *TurnResult {
	return &TurnResult{
		Tasks:             []task.Task{},
		PendingTasks:      []task.Draft{},
		TaskConfirmations: []task.Confirmation{},
		SessionID:         sessionID,
	}
}

// Stage is a state of the turn state machine.
type Stage string

const (
	StageStart      Stage = "start"
	StageClassified Stage = "classified"
	StageSmallTalk  Stage = "small_talk_handled"
	StageTask       Stage = "task_handled"
	StageQuery      Stage = "query_handled"
	StageDone       Stage = "done"
)

// TurnState is the working set threaded through a single turn. It is created
// at the start of the turn and discarded at its end.
type TurnState struct {
	Request *TurnRequest
	Stage   Stage
	Intent  intent.Intent
	Result  *TurnResult
	Err     error
}

// NewTurnState starts a turn for req.
func NewTurnState(req *TurnRequest, sessionID string) *TurnState {
	return &TurnState{
		Request: req,
		Stage:   StageStart,
		Intent:  intent.Default,
		Result:  NewTurnResult(sessionID),
	}
}

// Advance moves the state machine to next.
func (s *TurnState) Advance(next Stage) {
	s.Stage = next
}
