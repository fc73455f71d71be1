package litellm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/StudyMate/internal/adapter/litellm"
	"github.com/Strob0t/StudyMate/internal/port/llm"
	"github.com/Strob0t/StudyMate/internal/resilience"
)

func completionServer(t *testing.T, content string, check func(*http.Request, litellm.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		var req litellm.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": req.Model,
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 42, "completion_tokens": 7},
		})
	}))
}

func TestGenerateAppliesDefaults(t *testing.T) {
	srv := completionServer(t, `{"intent":"small_talk"}`, func(r *http.Request, req litellm.ChatCompletionRequest) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth: %q", got)
		}
		if req.Model != "groq/llama-3.1-8b-instant" {
			t.Errorf("expected default model, got %q", req.Model)
		}
		if req.Temperature != 0.1 || req.MaxTokens != 256 {
			t.Errorf("expected defaults, got temperature=%v max_tokens=%d", req.Temperature, req.MaxTokens)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %+v", req.ResponseFormat)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
	})
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "test-key", litellm.Options{
		Model:       "groq/llama-3.1-8b-instant",
		Temperature: 0.1,
		MaxTokens:   256,
	})
	resp, err := client.Generate(context.Background(), llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "classify"},
			{Role: llm.RoleUser, Content: "Hello!"},
		},
		JSON: true,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != `{"intent":"small_talk"}` {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if resp.TokensIn != 42 || resp.TokensOut != 7 {
		t.Errorf("unexpected usage: in=%d out=%d", resp.TokensIn, resp.TokensOut)
	}
	if resp.Model != "groq/llama-3.1-8b-instant" {
		t.Errorf("unexpected model: %q", resp.Model)
	}
}

func TestGenerateRequestOverridesDefaults(t *testing.T) {
	srv := completionServer(t, "ok", func(_ *http.Request, req litellm.ChatCompletionRequest) {
		if req.Model != "openai/gpt-4o-mini" || req.Temperature != 0.7 {
			t.Errorf("expected overrides, got model=%q temperature=%v", req.Model, req.Temperature)
		}
		if req.ResponseFormat != nil {
			t.Errorf("expected no response format, got %+v", req.ResponseFormat)
		}
	})
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "", litellm.Options{Model: "default", Temperature: 0.1})
	if _, err := client.Generate(context.Background(), llm.Request{
		Model:       "openai/gpt-4o-mini",
		Temperature: 0.7,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "", litellm.Options{Model: "m"})
	_, err := client.Generate(context.Background(), llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "", litellm.Options{Model: "m"})
	_, err := client.Generate(context.Background(), llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	if !errors.Is(err, litellm.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestBreakerFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := litellm.NewClient(srv.URL, "", litellm.Options{Model: "m"})
	client.SetBreaker(resilience.NewBreaker("litellm", 2, time.Minute))

	req := llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}}
	for range 2 {
		_, _ = client.Generate(context.Background(), req)
	}
	_, err := client.Generate(context.Background(), req)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/liveliness" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`"I'm alive!"`))
	}))
	defer srv.Close()

	ok, err := litellm.NewClient(srv.URL, "", litellm.Options{}).Health(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected healthy, got %v, %v", ok, err)
	}
}
