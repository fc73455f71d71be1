package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Strob0t/StudyMate/internal/config"
	"github.com/Strob0t/StudyMate/internal/domain/conversation"
	"github.com/Strob0t/StudyMate/internal/domain/intent"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
)

type fixedClassifier struct {
	intent intent.Intent
	panics bool
}

func (c fixedClassifier) Classify(context.Context, string) intent.Intent {
	if c.panics {
		panic("classifier exploded")
	}
	return c.intent
}

type stubRecords struct {
	tasks    []record.Task
	quizzes  []record.QuizAttempt
	pomodoro record.PomodoroStats
}

func (r *stubRecords) Tasks(context.Context, string) []record.Task { return r.tasks }
func (r *stubRecords) QuizResults(context.Context, string) []record.QuizAttempt {
	return r.quizzes
}
func (r *stubRecords) PomodoroStats(context.Context, string) record.PomodoroStats {
	return r.pomodoro
}

func newAssistant(in intent.Intent, gen *mockGenerator, records *stubRecords) *AssistantService {
	if records == nil {
		records = &stubRecords{}
	}
	res := testResolver()
	svc := NewAssistantService(gen, fixedClassifier{intent: in}, NewQueryExtractor(gen, "m", res, nil), records, res,
		&config.Assistant{SmallTalkHistory: 6, ExtractionHistory: 8}, "m")
	svc.now = func() time.Time { return friday }
	return svc
}

func history(n int) []conversation.Message {
	out := make([]conversation.Message, 0, n)
	for i := range n {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		out = append(out, conversation.Message{Role: role, Content: "msg"})
	}
	return out
}

func TestProcessTurn_SmallTalk(t *testing.T) {
	gen := &mockGenerator{responses: []string{"Hi! How can I help?"}}
	svc := newAssistant(intent.SmallTalk, gen, nil)

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{
		Message: "Hello!",
		UserID:  "u1",
		History: history(10),
	})

	if res.IntentType != intent.SmallTalk {
		t.Errorf("expected small_talk, got %s", res.IntentType)
	}
	if len(res.Tasks) != 0 || len(res.PendingTasks) != 0 || len(res.TaskConfirmations) != 0 {
		t.Errorf("expected no task output, got %+v", res)
	}
	if res.Response != "Hi! How can I help?" {
		t.Errorf("unexpected response %q", res.Response)
	}
	if res.SessionID == "" {
		t.Error("expected a generated session id")
	}
	// system + 6 history + current
	if n := len(gen.requests[0].Messages); n != 8 {
		t.Errorf("expected 8 messages, got %d", n)
	}
}

func TestProcessTurn_SmallTalkFallbackKeepsDrafts(t *testing.T) {
	gen := &mockGenerator{err: errors.New("rate limited")}
	svc := newAssistant(intent.SmallTalk, gen, nil)
	carried := []task.Draft{{Description: "Read chapter 3", MissingFields: []string{task.FieldDueDate}}}

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{
		Message: "thanks", UserID: "u1", SessionID: "s1", PendingTasks: carried,
	})
	if res.Response != MsgSmallTalkFallback {
		t.Errorf("unexpected response %q", res.Response)
	}
	if res.SessionID != "s1" {
		t.Errorf("expected session s1, got %s", res.SessionID)
	}
	if diff := cmp.Diff(carried, res.PendingTasks); diff != "" {
		t.Errorf("carried drafts changed (-want +got):\n%s", diff)
	}
}

func TestProcessTurn_TaskCompletesCarriedDraft(t *testing.T) {
	gen := &mockGenerator{responses: []string{`{
		"response": "Great! Please confirm your study task.",
		"tasks": [{"description": "Study for math exam", "list": "Study", "dueDate": "next Friday", "subTasks": null, "priority": "high", "importance": false}],
		"pendingTasks": [],
		"needsFollowUp": false,
		"followUpQuestion": null
	}`}}
	svc := newAssistant(intent.TaskAction, gen, nil)
	pending := NewConfirmationStore(newMapCache(), time.Hour)
	svc.SetConfirmationStore(pending)

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{
		Message: "It's next Friday",
		UserID:  "u1",
		History: []conversation.Message{
			{Role: conversation.RoleUser, Content: "I need to study for math exam"},
			{Role: conversation.RoleAssistant, Content: "When is your math exam?"},
		},
		PendingTasks: []task.Draft{{Description: "Study for math exam", MissingFields: []string{task.FieldDueDate}}},
	})

	if len(res.Tasks) != 1 || res.Tasks[0].DueDate != "2025-11-21" {
		t.Fatalf("expected one task due 2025-11-21, got %+v", res.Tasks)
	}
	if len(res.PendingTasks) != 0 {
		t.Errorf("expected no drafts, got %+v", res.PendingTasks)
	}
	if res.NeedsFollowUp {
		t.Error("expected no follow-up")
	}
	if len(res.TaskConfirmations) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(res.TaskConfirmations))
	}
	if _, ok := pending.Get(context.Background(), "u1", res.TaskConfirmations[0].ID); !ok {
		t.Error("expected confirmation stored server-side")
	}

	msgs := gen.requests[0].Messages
	if !gen.requests[0].JSON {
		t.Error("expected JSON mode")
	}
	if !strings.Contains(msgs[0].Content, "1. Task: Study for math exam") || !strings.Contains(msgs[0].Content, "Missing: dueDate") {
		t.Errorf("carried draft not rendered in prompt:\n%s", msgs[0].Content)
	}
	if !strings.HasPrefix(msgs[1].Content, "Conversation history:\nUser: I need to study") {
		t.Errorf("unexpected history message %q", msgs[1].Content)
	}
	if msgs[2].Content != "Current message: It's next Friday" {
		t.Errorf("unexpected current message %q", msgs[2].Content)
	}
}

func TestProcessTurn_TaskDraftNeedsFollowUp(t *testing.T) {
	gen := &mockGenerator{responses: []string{"```json\n" + `{"response": "", "tasks": [], "pendingTasks": [{"description": "Study for math exam", "list": "Study", "dueDate": null, "priority": "high", "missingFields": []}], "needsFollowUp": false}` + "\n```"}}
	svc := newAssistant(intent.TaskAction, gen, nil)

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "I need to study for math exam", UserID: "u1"})
	if len(res.PendingTasks) != 1 || res.PendingTasks[0].MissingFields[0] != task.FieldDueDate {
		t.Fatalf("expected draft missing dueDate, got %+v", res.PendingTasks)
	}
	if !res.NeedsFollowUp || res.FollowUpQuestion == "" {
		t.Errorf("expected a follow-up question, got %+v", res)
	}
	if res.Response != msgTaskDefault {
		t.Errorf("expected default response, got %q", res.Response)
	}
}

func TestProcessTurn_TaskFailures(t *testing.T) {
	carried := []task.Draft{{Description: "Essay", MissingFields: []string{task.FieldDueDate}}}
	tests := []struct {
		name string
		gen  *mockGenerator
		want string
	}{
		{"parse failure", &mockGenerator{responses: []string{"Sure, I added it!"}}, MsgTaskParseFallback},
		{"delegate failure", &mockGenerator{err: errors.New("503")}, MsgTaskFailureFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAssistant(intent.TaskAction, tt.gen, nil)
			res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "add it", UserID: "u1", PendingTasks: carried})
			if res.Response != tt.want {
				t.Errorf("response = %q, want %q", res.Response, tt.want)
			}
			if !res.NeedsFollowUp {
				t.Error("expected follow-up")
			}
			if diff := cmp.Diff(carried, res.PendingTasks); diff != "" {
				t.Errorf("carried drafts lost (-want +got):\n%s", diff)
			}
			if len(res.Tasks) != 0 || len(res.TaskConfirmations) != 0 {
				t.Error("expected no tasks on failure")
			}
		})
	}
}

func TestProcessTurn_QueryOverdue(t *testing.T) {
	gen := &mockGenerator{responses: []string{
		`{"recordType":"tasks","startDate":null,"endDate":null,"completed":null}`,
		"You have one overdue task: Old essay.",
	}}
	records := &stubRecords{tasks: []record.Task{
		{ID: "open", Description: "Old essay", DueDate: "2025-01-01"},
		{ID: "done", Description: "Old lab", DueDate: "2025-01-01", Completed: true},
	}}
	svc := newAssistant(intent.DataQuery, gen, records)

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "What's overdue?", UserID: "u1"})
	if res.Response != "You have one overdue task: Old essay." {
		t.Errorf("unexpected response %q", res.Response)
	}
	if res.IntentType != intent.DataQuery {
		t.Errorf("expected data_query, got %s", res.IntentType)
	}
	answerPrompt := gen.requests[1].Messages[0].Content
	if !strings.Contains(answerPrompt, `"id":"open"`) || strings.Contains(answerPrompt, `"id":"done"`) {
		t.Errorf("answer prompt should only carry the incomplete record:\n%s", answerPrompt)
	}
}

func TestProcessTurn_QueryNoMatch(t *testing.T) {
	gen := &mockGenerator{responses: []string{`{"recordType":"tasks"}`}}
	svc := newAssistant(intent.DataQuery, gen, &stubRecords{})

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "What's due tomorrow?", UserID: "u1"})
	if res.Response != msgNoMatchingTasks {
		t.Errorf("unexpected response %q", res.Response)
	}
	if len(gen.requests) != 1 {
		t.Errorf("expected no answer generation, got %d calls", len(gen.requests))
	}
}

func TestProcessTurn_QueryAggregates(t *testing.T) {
	gen := &mockGenerator{responses: []string{`{"recordType":"pomodoro"}`, "You completed 12 pomodoros."}}
	svc := newAssistant(intent.DataQuery, gen, &stubRecords{pomodoro: record.PomodoroStats{CompletedPomodoros: 12, PresentTime: 300}})

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "How many pomodoros did I do?", UserID: "u1"})
	if res.Response != "You completed 12 pomodoros." {
		t.Errorf("unexpected response %q", res.Response)
	}
	if !strings.Contains(gen.requests[1].Messages[0].Content, `"completedPomodoros":12`) {
		t.Error("expected stats in answer prompt")
	}
}

func TestProcessTurn_QueryFailures(t *testing.T) {
	gen := &mockGenerator{responses: []string{"no idea"}}
	svc := newAssistant(intent.DataQuery, gen, nil)
	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "hmm?", UserID: "u1"})
	if res.Response != MsgQueryClarification || !res.NeedsFollowUp {
		t.Errorf("expected clarification, got %+v", res)
	}

	gen = &mockGenerator{responses: []string{`{"recordType":"quiz"}`}}
	svc = newAssistant(intent.DataQuery, gen, &stubRecords{quizzes: []record.QuizAttempt{{ID: "q1"}}})
	res = svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "my quiz results", UserID: "u1"})
	if res.Response != MsgGenericFallback {
		t.Errorf("expected generic fallback when answering fails, got %q", res.Response)
	}
}

func TestProcessTurn_RecoversFromPanic(t *testing.T) {
	svc := newAssistant(intent.SmallTalk, &mockGenerator{}, nil)
	svc.classifier = fixedClassifier{panics: true}
	carried := []task.Draft{{Description: "Essay", MissingFields: []string{task.FieldDueDate}}}

	res := svc.ProcessTurn(context.Background(), conversation.TurnRequest{Message: "hi", UserID: "u1", SessionID: "s1", PendingTasks: carried})
	if res == nil || res.Response != MsgGenericFallback {
		t.Fatalf("expected generic fallback, got %+v", res)
	}
	if res.SessionID != "s1" || len(res.PendingTasks) != 1 {
		t.Errorf("expected session and drafts preserved, got %+v", res)
	}
}
