package llm

import (
	"context"
	"time"
)

// Message roles accepted in a completion history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a completion history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageContext carries the reference lists folded into a vision prompt.
type ImageContext struct {
	Categories []string
	Cards      []string
}

// Client defines the interface for LLM providers. Responses are raw text and
// may be fenced; callers normalize with StripJSONFence before parsing.
type Client interface {
	// CompleteChat sends prompt as the final user turn after history and
	// returns the model's reply.
	CompleteChat(ctx context.Context, prompt string, history []Message) (string, error)
	// AnalyzeImage extracts expense details from a base64-encoded receipt
	// image, constrained by the supplied reference lists.
	AnalyzeImage(ctx context.Context, base64Image string, lists ImageContext) (string, error)
}

// Config holds configuration for an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	VisionModel string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	RateLimit   int
	Timeout     time.Duration
}

const defaultSystemPrompt = "You are a helpful assistant."
