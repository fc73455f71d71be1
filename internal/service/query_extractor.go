package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Strob0t/StudyMate/internal/adapter/otel"
	"github.com/Strob0t/StudyMate/internal/domain/query"
	"github.com/Strob0t/StudyMate/internal/domain/task"
	"github.com/Strob0t/StudyMate/internal/port/llm"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

const stageExtractQuery = "extract_query"

// ErrMalformedDescriptor is returned when generation output cannot be turned
// into a valid query.Descriptor.
var ErrMalformedDescriptor = errors.New("malformed query descriptor")

var (
	overdueWords   = regexp.MustCompile(`\b(overdue|past due)\b`)
	tomorrowWord   = regexp.MustCompile(`\btomorrow\b`)
	dayAfterWords  = regexp.MustCompile(`\bday after tomorrow\b`)
	pendingWords   = regexp.MustCompile(`\b(pending|incomplete|unfinished|not (yet )?(done|completed|finished)|outstanding|left to do)\b`)
	completedWords = regexp.MustCompile(`\b(completed|finished)\b`)
	quizWords      = regexp.MustCompile(`\b(quiz(zes)?|papers?|scores?|marks?|results?)\b`)
	pomodoroWords  = regexp.MustCompile(`\b(pomodoros?|focus|timer|study time|present time)\b`)
)

// rawDescriptor mirrors the JSON requested from generation.
type rawDescriptor struct {
	RecordType string  `json:"recordType"`
	StartDate  *string `json:"startDate"`
	EndDate    *string `json:"endDate"`
	Completed  *bool   `json:"completed"`
	Priority   *string `json:"priority"`
	List       *string `json:"list"`
	Important  *bool   `json:"important"`
}

// QueryExtractor turns an analytical question into a query.Descriptor.
// Date arithmetic stays outside generation: the prompt carries literal
// anchors and fixed wording rules are re-applied after parsing.
type QueryExtractor struct {
	gen      llm.Generator
	model    string
	resolver *temporal.Resolver
	metrics  *otel.Metrics
}

// NewQueryExtractor creates a QueryExtractor.
func NewQueryExtractor(gen llm.Generator, model string, r *temporal.Resolver, metrics *otel.Metrics) *QueryExtractor {
	return &QueryExtractor{gen: gen, model: model, resolver: r, metrics: metrics}
}

type queryPromptData struct {
	temporal.Anchors
	TimeZone string
}

// Extract builds the descriptor for utterance relative to ref. Transport
// failures are returned wrapped; unusable output yields
// ErrMalformedDescriptor.
func (e *QueryExtractor) Extract(ctx context.Context, utterance string, ref time.Time) (query.Descriptor, error) {
	ctx, span := otel.StartGenerationSpan(ctx, stageExtractQuery, e.model)
	defer span.End()

	anchors := e.resolver.Anchors(ref)
	system, err := renderPrompt("query_extraction.tmpl", queryPromptData{
		Anchors:  anchors,
		TimeZone: e.resolver.Location().String(),
	})
	if err != nil {
		return query.Descriptor{}, err
	}

	resp, err := e.gen.Generate(ctx, llm.Request{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: sanitizePromptInput(utterance)},
		},
		Temperature: 0.1,
		MaxTokens:   200,
		JSON:        true,
	})
	if err != nil {
		span.RecordError(err)
		e.metrics.RecordGenerationFailure(ctx, stageExtractQuery)
		return query.Descriptor{}, fmt.Errorf("query extraction: %w", err)
	}

	var raw rawDescriptor
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &raw); err != nil {
		e.metrics.RecordGenerationFailure(ctx, stageExtractQuery)
		slog.WarnContext(ctx, "unparseable query descriptor", "error", err, "content", truncate(resp.Content, 200))
		return query.Descriptor{}, fmt.Errorf("%w: %w", ErrMalformedDescriptor, err)
	}

	d, err := e.build(raw, utterance, ref)
	if err != nil {
		e.metrics.RecordGenerationFailure(ctx, stageExtractQuery)
		slog.WarnContext(ctx, "invalid query descriptor", "error", err, "content", truncate(resp.Content, 200))
		return query.Descriptor{}, err
	}
	applyQueryRules(&d, utterance, anchors)

	if err := d.Validate(); err != nil {
		return query.Descriptor{}, fmt.Errorf("%w: %w", ErrMalformedDescriptor, err)
	}
	return d, nil
}

// build converts the raw output into a descriptor. Non-ISO date values are
// passed through the resolver; values that still cannot be used are an
// error rather than a guess.
func (e *QueryExtractor) build(raw rawDescriptor, utterance string, ref time.Time) (query.Descriptor, error) {
	var d query.Descriptor

	rt, ok := query.ParseRecordType(raw.RecordType)
	if !ok {
		rt, ok = recordTypeFromWording(utterance)
		if !ok {
			return d, fmt.Errorf("%w: unknown record type %q", ErrMalformedDescriptor, raw.RecordType)
		}
	}
	d.RecordType = rt

	var err error
	if d.StartDate, err = e.dateBound(raw.StartDate, ref, true); err != nil {
		return d, err
	}
	if d.EndDate, err = e.dateBound(raw.EndDate, ref, false); err != nil {
		return d, err
	}

	d.Completed = raw.Completed
	d.Important = raw.Important
	if raw.Priority != nil && nullText(*raw.Priority) != "" {
		p, ok := task.ParsePriority(*raw.Priority)
		if !ok {
			return d, fmt.Errorf("%w: invalid priority %q", ErrMalformedDescriptor, *raw.Priority)
		}
		d.Priority = &p
	}
	if raw.List != nil && nullText(*raw.List) != "" {
		c, ok := task.ParseCategory(*raw.List)
		if !ok {
			return d, fmt.Errorf("%w: invalid list %q", ErrMalformedDescriptor, *raw.List)
		}
		d.Category = &c
	}
	return d, nil
}

// dateBound resolves one end of the range. A period phrase ("this week")
// names its last day, so as a start bound it is replaced by the period's
// first day.
func (e *QueryExtractor) dateBound(v *string, ref time.Time, start bool) (string, error) {
	if v == nil || nullText(*v) == "" {
		return "", nil
	}
	if start {
		switch strings.Join(strings.Fields(strings.ToLower(*v)), " ") {
		case "this week", "week", "current week":
			return e.resolver.Anchors(ref).WeekStart, nil
		case "this month", "month", "current month":
			return e.resolver.Anchors(ref).MonthStart, nil
		}
	}
	iso, err := e.resolver.Resolve(*v, ref)
	if err != nil {
		return "", fmt.Errorf("%w: date bound %q: %w", ErrMalformedDescriptor, *v, err)
	}
	return iso, nil
}

// recordTypeFromWording guesses the record type from keywords when
// generation returned an unknown one.
func recordTypeFromWording(utterance string) (query.RecordType, bool) {
	u := strings.ToLower(utterance)
	switch {
	case pomodoroWords.MatchString(u):
		return query.RecordPomodoro, true
	case quizWords.MatchString(u):
		return query.RecordQuiz, true
	case strings.Contains(u, "task") || strings.Contains(u, "due"):
		return query.RecordTasks, true
	}
	return "", false
}

// applyQueryRules enforces the fixed wording rules over whatever generation
// produced, for every record type. Completion is driven by wording only:
// without completion words the constraint is cleared.
func applyQueryRules(d *query.Descriptor, utterance string, a temporal.Anchors) {
	u := strings.ToLower(utterance)

	d.Completed = nil
	switch {
	case pendingWords.MatchString(u):
		d.Completed = boolPtr(false)
	case completedWords.MatchString(u):
		d.Completed = boolPtr(true)
	}

	if overdueWords.MatchString(u) {
		d.EndDate = a.Yesterday
		d.Completed = boolPtr(false)
		if d.StartDate > d.EndDate {
			d.StartDate = ""
		}
		return
	}
	// "day after tomorrow" is left to the generated range.
	if tomorrowWord.MatchString(u) && !dayAfterWords.MatchString(u) {
		d.StartDate = a.Tomorrow
		d.EndDate = a.Tomorrow
	}
}

func boolPtr(b bool) *bool { return &b }
