package llm

import (
	"context"
	"sync"
)

// MockClient is a Client implementation for testing.
type MockClient struct {
	CompleteChatFunc func(ctx context.Context, prompt string, history []Message) (string, error)
	AnalyzeImageFunc func(ctx context.Context, base64Image string, lists ImageContext) (string, error)

	ChatCalls  []ChatCall
	ImageCalls []ImageCall
	mu         sync.Mutex
}

// ChatCall records the arguments of a CompleteChat invocation.
type ChatCall struct {
	Prompt  string
	History []Message
}

// ImageCall records the arguments of an AnalyzeImage invocation.
type ImageCall struct {
	Base64Image string
	Lists       ImageContext
}

// CompleteChat implements the Client interface.
func (m *MockClient) CompleteChat(ctx context.Context, prompt string, history []Message) (string, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{Prompt: prompt, History: history})
	m.mu.Unlock()
	if m.CompleteChatFunc != nil {
		return m.CompleteChatFunc(ctx, prompt, history)
	}
	return "", nil
}

// AnalyzeImage implements the Client interface.
func (m *MockClient) AnalyzeImage(ctx context.Context, base64Image string, lists ImageContext) (string, error) {
	m.mu.Lock()
	m.ImageCalls = append(m.ImageCalls, ImageCall{Base64Image: base64Image, Lists: lists})
	m.mu.Unlock()
	if m.AnalyzeImageFunc != nil {
		return m.AnalyzeImageFunc(ctx, base64Image, lists)
	}
	return "", nil
}
