package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewClient creates an LLM client based on the provided configuration. The
// backend is chosen once here; call sites never branch on provider again.
func NewClient(cfg Config) (Client, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "gemini":
		client, err = newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		client = &rateLimitedClient{inner: client, limiter: newRateLimiter(cfg.RateLimit)}
	}

	return client, nil
}

// rateLimitedClient throttles an inner client with a token bucket.
type rateLimitedClient struct {
	inner   Client
	limiter *rateLimiter
}

func (c *rateLimitedClient) CompleteChat(ctx context.Context, prompt string, history []Message) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}
	return c.inner.CompleteChat(ctx, prompt, history)
}

func (c *rateLimitedClient) AnalyzeImage(ctx context.Context, base64Image string, lists ImageContext) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}
	return c.inner.AnalyzeImage(ctx, base64Image, lists)
}
