// Package openai adapts any OpenAI-compatible chat API (OpenAI, Groq,
// OpenRouter) to the llm.Generator port using go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Strob0t/StudyMate/internal/port/llm"
	"github.com/Strob0t/StudyMate/internal/resilience"
)

var _ llm.Generator = (*Generator)(nil)

// ErrNoChoices is returned when the API answers without choices.
var ErrNoChoices = errors.New("openai: no choices in response")

// Config configures a Generator. An empty BaseURL uses api.openai.com.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Generator calls the chat completions endpoint once per Generate.
type Generator struct {
	client      *goopenai.Client
	model       string
	temperature float64
	maxTokens   int
	breaker     *resilience.Breaker
}

// New creates a Generator.
func New(cfg Config) *Generator {
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Generator{
		client:      goopenai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// SetBreaker attaches a circuit breaker to every completion call.
func (g *Generator) SetBreaker(b *resilience.Breaker) {
	g.breaker = b
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	cr := buildRequest(req, g.model, g.temperature, g.maxTokens)

	var resp goopenai.ChatCompletionResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = g.client.CreateChatCompletion(ctx, cr)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.ExecuteContext(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	model := resp.Model
	if model == "" {
		model = cr.Model
	}
	return &llm.Response{
		Content:   resp.Choices[0].Message.Content,
		Model:     model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}

func buildRequest(req llm.Request, model string, temperature float64, maxTokens int) goopenai.ChatCompletionRequest {
	cr := goopenai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  convertMessages(req.Messages),
		MaxTokens: req.MaxTokens,
	}
	if cr.Model == "" {
		cr.Model = model
	}
	t := req.Temperature
	if t == 0 {
		t = temperature
	}
	cr.Temperature = float32(t)
	if cr.MaxTokens == 0 {
		cr.MaxTokens = maxTokens
	}
	if req.JSON {
		cr.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return cr
}

func convertMessages(msgs []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case llm.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case llm.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
