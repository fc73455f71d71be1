// Package llm defines the text-generation port (interface).
package llm

import "context"

// Message roles understood by every Generator.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single, non-streaming completion request. Zero values for
// Model, Temperature and MaxTokens select the adapter's configured defaults.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response when supported.
	JSON bool
}

// Response is the completion text plus token accounting.
type Response struct {
	Content   string
	Model     string
	TokensIn  int
	TokensOut int
}

// Generator produces a text completion for a prompt. Implementations make
// exactly one attempt per call.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
