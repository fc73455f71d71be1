package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/StudyMate/internal/adapter/otel"
	"github.com/Strob0t/StudyMate/internal/config"
	"github.com/Strob0t/StudyMate/internal/domain/conversation"
	"github.com/Strob0t/StudyMate/internal/domain/intent"
	"github.com/Strob0t/StudyMate/internal/domain/query"
	"github.com/Strob0t/StudyMate/internal/domain/record"
	"github.com/Strob0t/StudyMate/internal/domain/task"
	"github.com/Strob0t/StudyMate/internal/logger"
	"github.com/Strob0t/StudyMate/internal/port/llm"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

// Fixed responses used when a collaborator fails.
const (
	MsgSmallTalkFallback   = "I'm here to help! How can I assist you today?"
	MsgTaskParseFallback   = "I understand you want to create a task. Could you tell me what you need to do and when you'd like to complete it?"
	MsgTaskFailureFallback = "I'm having trouble processing that. Could you rephrase what you'd like to accomplish?"
	MsgQueryClarification  = "I couldn't work out which records you're asking about. Could you rephrase, for example \"What's due tomorrow?\""
	MsgGenericFallback     = "I apologize, I'm having trouble processing that right now. Please try again."
	msgTaskDefault         = "I understand. How can I help you organize your tasks?"
	msgNoMatchingTasks     = "I couldn't find any tasks matching that."
)

const (
	stageSmallTalk  = "small_talk"
	stageExtractTsk = "extract_tasks"
	stageAnswer     = "answer"
)

type intentClassifier interface {
	Classify(ctx context.Context, utterance string) intent.Intent
}

type descriptorExtractor interface {
	Extract(ctx context.Context, utterance string, ref time.Time) (query.Descriptor, error)
}

type recordReader interface {
	Tasks(ctx context.Context, userID string) []record.Task
	QuizResults(ctx context.Context, userID string) []record.QuizAttempt
	PomodoroStats(ctx context.Context, userID string) record.PomodoroStats
}

// AssistantService runs one conversational turn: it classifies the
// message, then either chats, extracts tasks or answers a question about
// the user's records.
type AssistantService struct {
	gen           llm.Generator
	classifier    intentClassifier
	extractor     descriptorExtractor
	records       recordReader
	merger        *CompletionMerger
	resolver      *temporal.Resolver
	confirmations *ConfirmationStore
	metrics       *otel.Metrics
	model         string
	smallTalkN    int
	extractionN   int
	now           func() time.Time
}

// NewAssistantService creates an AssistantService. model selects the
// generation model for chat, extraction and answers; empty uses the
// generator's default.
func NewAssistantService(
	gen llm.Generator,
	classifier intentClassifier,
	extractor descriptorExtractor,
	records recordReader,
	resolver *temporal.Resolver,
	cfg *config.Assistant,
	model string,
) *AssistantService {
	s := &AssistantService{
		gen:         gen,
		classifier:  classifier,
		extractor:   extractor,
		records:     records,
		merger:      NewCompletionMerger(resolver),
		resolver:    resolver,
		model:       model,
		smallTalkN:  6,
		extractionN: 8,
		now:         time.Now,
	}
	if cfg != nil {
		if cfg.SmallTalkHistory > 0 {
			s.smallTalkN = cfg.SmallTalkHistory
		}
		if cfg.ExtractionHistory > 0 {
			s.extractionN = cfg.ExtractionHistory
		}
	}
	return s
}

// SetConfirmationStore enables server-side storage of proposed tasks.
func (s *AssistantService) SetConfirmationStore(cs *ConfirmationStore) { s.confirmations = cs }

// SetMetrics sets the turn metrics recorder.
func (s *AssistantService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// ProcessTurn runs one turn. It never fails: every collaborator failure
// yields a fixed fallback response and the result is always well formed.
func (s *AssistantService) ProcessTurn(ctx context.Context, req conversation.TurnRequest) (result *conversation.TurnResult) {
	start := s.now()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx = logger.WithUserID(ctx, req.UserID)
	ctx, span := otel.StartTurnSpan(ctx, req.UserID, sessionID)
	defer span.End()

	st := conversation.NewTurnState(&req, sessionID)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "turn panicked", "stage", st.Stage, "panic", r)
			res := conversation.NewTurnResult(sessionID)
			res.Response = MsgGenericFallback
			res.IntentType = st.Intent
			res.PendingTasks = carryDrafts(req.PendingTasks)
			result = res
		}
		s.metrics.RecordTurn(ctx, string(st.Intent), s.now().Sub(start))
	}()

	st.Intent = s.classifier.Classify(ctx, req.Message)
	st.Result.IntentType = st.Intent
	st.Advance(conversation.StageClassified)
	slog.InfoContext(ctx, "turn classified", "intent", st.Intent, "session_id", sessionID)

	switch st.Intent {
	case intent.TaskAction:
		s.handleTask(ctx, st, start)
		st.Advance(conversation.StageTask)
	case intent.DataQuery:
		s.handleQuery(ctx, st, start)
		st.Advance(conversation.StageQuery)
	default:
		s.handleSmallTalk(ctx, st)
		st.Advance(conversation.StageSmallTalk)
	}

	st.Advance(conversation.StageDone)
	return st.Result
}

// handleSmallTalk answers from recent history only. Carried drafts pass
// through untouched.
func (s *AssistantService) handleSmallTalk(ctx context.Context, st *conversation.TurnState) {
	st.Result.PendingTasks = carryDrafts(st.Request.PendingTasks)

	system, err := renderPrompt("small_talk.tmpl", nil)
	if err != nil {
		slog.ErrorContext(ctx, "small talk prompt", "error", err)
		st.Result.Response = MsgSmallTalkFallback
		return
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	msgs = append(msgs, historyMessages(conversation.Window(st.Request.History, s.smallTalkN))...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: sanitizePromptInput(st.Request.Message)})

	text, err := s.generate(ctx, stageSmallTalk, llm.Request{
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil || text == "" {
		st.Result.Response = MsgSmallTalkFallback
		return
	}
	st.Result.Response = text
}

type taskPromptData struct {
	TimeZone string
	Today    string
	Weekday  string
	Drafts   []task.Draft
}

// extractionOutput is the JSON expected from task extraction.
type extractionOutput struct {
	Response         string           `json:"response"`
	Tasks            []ExtractedTask  `json:"tasks"`
	PendingTasks     []ExtractedDraft `json:"pendingTasks"`
	NeedsFollowUp    bool             `json:"needsFollowUp"`
	FollowUpQuestion *string          `json:"followUpQuestion"`
}

// handleTask extracts tasks and drafts, merges them with the carried
// drafts and stores a pending confirmation for every completed task. On
// failure the carried drafts are returned unchanged and the user is asked
// again.
func (s *AssistantService) handleTask(ctx context.Context, st *conversation.TurnState, ref time.Time) {
	req := st.Request
	carried := carryDrafts(req.PendingTasks)
	anchors := s.resolver.Anchors(ref)

	fail := func(msg string) {
		st.Result.Response = msg
		st.Result.NeedsFollowUp = true
		st.Result.PendingTasks = carried
	}

	system, err := renderPrompt("task_extraction.tmpl", taskPromptData{
		TimeZone: s.resolver.Location().String(),
		Today:    anchors.Today,
		Weekday:  anchors.Weekday,
		Drafts:   carried,
	})
	if err != nil {
		slog.ErrorContext(ctx, "task extraction prompt", "error", err)
		fail(MsgTaskFailureFallback)
		return
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	if transcript := historyTranscript(conversation.Window(req.History, s.extractionN)); transcript != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: transcript})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Current message: " + sanitizePromptInput(req.Message)})

	text, err := s.generate(ctx, stageExtractTsk, llm.Request{
		Messages:    msgs,
		Temperature: 0.3,
		MaxTokens:   1000,
		JSON:        true,
	})
	if err != nil {
		fail(MsgTaskFailureFallback)
		return
	}

	var out extractionOutput
	if err := json.Unmarshal([]byte(extractJSON(text)), &out); err != nil {
		s.metrics.RecordGenerationFailure(ctx, stageExtractTsk)
		slog.WarnContext(ctx, "unparseable task extraction", "error", err, "content", truncate(text, 200))
		fail(MsgTaskParseFallback)
		return
	}

	merged := s.merger.Merge(ref, carried, out.Tasks, out.PendingTasks)
	for _, w := range merged.Warnings {
		slog.WarnContext(ctx, "task extraction", "warning", w)
	}
	s.storeConfirmations(ctx, req.UserID, merged.Confirmations)

	res := st.Result
	res.Tasks = merged.Tasks
	res.PendingTasks = merged.Drafts
	res.TaskConfirmations = merged.Confirmations
	res.Response = strings.TrimSpace(out.Response)
	if res.Response == "" {
		res.Response = msgTaskDefault
	}
	if out.FollowUpQuestion != nil {
		res.FollowUpQuestion = nullText(*out.FollowUpQuestion)
	}
	res.NeedsFollowUp = out.NeedsFollowUp || len(merged.Drafts) > 0
	if res.NeedsFollowUp && res.FollowUpQuestion == "" && len(merged.Drafts) > 0 {
		res.FollowUpQuestion = followUpFor(merged.Drafts[0])
	}
	slog.InfoContext(ctx, "tasks extracted", "tasks", len(res.Tasks), "drafts", len(res.PendingTasks))
}

func (s *AssistantService) storeConfirmations(ctx context.Context, userID string, cs []task.Confirmation) {
	if s.confirmations == nil {
		return
	}
	for i := range cs {
		if err := s.confirmations.Put(ctx, userID, &cs[i]); err != nil {
			slog.WarnContext(ctx, "store pending confirmation failed", "confirmation_id", cs[i].ID, "error", err)
		}
	}
}

// followUpFor asks for the first missing field of d.
func followUpFor(d task.Draft) string {
	for _, f := range d.MissingFields {
		switch f {
		case task.FieldDescription:
			return "What would you like to do?"
		case task.FieldDueDate:
			if d.Description != "" {
				return fmt.Sprintf("When do you need to finish %q?", d.Description)
			}
			return "When do you need to finish it?"
		}
	}
	return ""
}

type answerPromptData struct {
	Today      string
	Question   string
	RecordType query.RecordType
	Filter     string
	Data       string
}

// handleQuery builds a descriptor, fetches the matching records and
// phrases an answer restricted to them.
func (s *AssistantService) handleQuery(ctx context.Context, st *conversation.TurnState, ref time.Time) {
	req := st.Request
	st.Result.PendingTasks = carryDrafts(req.PendingTasks)

	d, err := s.extractor.Extract(ctx, req.Message, ref)
	if err != nil {
		slog.WarnContext(ctx, "query extraction failed", "error", err)
		st.Result.Response = MsgQueryClarification
		st.Result.NeedsFollowUp = true
		return
	}

	var data any
	switch d.RecordType {
	case query.RecordQuiz:
		data = s.records.QuizResults(ctx, req.UserID)
	case query.RecordPomodoro:
		data = s.records.PomodoroStats(ctx, req.UserID)
	default:
		matched := query.Apply(s.records.Tasks(ctx, req.UserID), d)
		if len(matched) == 0 {
			st.Result.Response = msgNoMatchingTasks
			return
		}
		data = matched
	}

	payload, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "marshal query data", "error", err)
		st.Result.Response = MsgGenericFallback
		return
	}
	filter, _ := json.Marshal(d)

	system, err := renderPrompt("answer.tmpl", answerPromptData{
		Today:      s.resolver.Today(ref),
		Question:   sanitizePromptInput(req.Message),
		RecordType: d.RecordType,
		Filter:     string(filter),
		Data:       string(payload),
	})
	if err != nil {
		slog.ErrorContext(ctx, "answer prompt", "error", err)
		st.Result.Response = MsgGenericFallback
		return
	}

	text, err := s.generate(ctx, stageAnswer, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: sanitizePromptInput(req.Message)},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil || text == "" {
		st.Result.Response = MsgGenericFallback
		return
	}
	st.Result.Response = text
}

// generate makes one generation call under a span and records failures.
func (s *AssistantService) generate(ctx context.Context, stage string, req llm.Request) (string, error) {
	req.Model = s.model
	ctx, span := otel.StartGenerationSpan(ctx, stage, s.model)
	defer span.End()

	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.metrics.RecordGenerationFailure(ctx, stage)
		slog.WarnContext(ctx, "generation failed", "stage", stage, "error", err)
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// carryDrafts returns a copy of the carried drafts with their missing
// fields recomputed.
func carryDrafts(in []task.Draft) []task.Draft {
	out := make([]task.Draft, 0, len(in))
	for _, d := range in {
		d.Recompute()
		out = append(out, d)
	}
	return out
}
