package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/StudyMate/internal/adapter/otel"
	"github.com/Strob0t/StudyMate/internal/domain/intent"
	"github.com/Strob0t/StudyMate/internal/port/llm"
)

const stageClassify = "classify"

// IntentClassifier labels a single utterance as small talk, a task action or
// a data query. It never sees conversation history.
type IntentClassifier struct {
	gen     llm.Generator
	model   string
	metrics *otel.Metrics
}

// NewIntentClassifier creates an IntentClassifier. An empty model uses the
// generator's default.
func NewIntentClassifier(gen llm.Generator, model string, metrics *otel.Metrics) *IntentClassifier {
	return &IntentClassifier{gen: gen, model: model, metrics: metrics}
}

// Classify returns the intent of utterance, or intent.Default when the
// generation call fails or its output cannot be parsed.
func (c *IntentClassifier) Classify(ctx context.Context, utterance string) intent.Intent {
	ctx, span := otel.StartGenerationSpan(ctx, stageClassify, c.model)
	defer span.End()

	system, err := renderPrompt("classifier.tmpl", nil)
	if err != nil {
		slog.Error("classifier prompt", "error", err)
		return intent.Default
	}

	resp, err := c.gen.Generate(ctx, llm.Request{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Classify this message: %q", sanitizePromptInput(utterance))},
		},
		Temperature: 0.1,
		MaxTokens:   150,
		JSON:        true,
	})
	if err != nil {
		span.RecordError(err)
		c.metrics.RecordGenerationFailure(ctx, stageClassify)
		slog.WarnContext(ctx, "intent classification failed, defaulting", "default", intent.Default, "error", err)
		return intent.Default
	}

	got, err := parseClassification(resp.Content)
	if err != nil {
		c.metrics.RecordGenerationFailure(ctx, stageClassify)
		slog.WarnContext(ctx, "unparseable classification, defaulting",
			"default", intent.Default, "error", err, "content", truncate(resp.Content, 200))
		return intent.Default
	}

	c.metrics.RecordIntent(ctx, string(got))
	return got
}

// parseClassification decodes the classifier output into a known intent.
func parseClassification(content string) (intent.Intent, error) {
	var cls intent.Classification
	if err := json.Unmarshal([]byte(extractJSON(content)), &cls); err != nil {
		return "", fmt.Errorf("unmarshal classification: %w", err)
	}
	in, ok := intent.Parse(cls.Intent)
	if !ok {
		return "", fmt.Errorf("unknown intent label %q", cls.Intent)
	}
	slog.Debug("intent classified", "intent", in, "confidence", cls.Confidence, "reasoning", cls.Reasoning)
	return in, nil
}
