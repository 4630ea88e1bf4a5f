package services

import (
	"context"
	"fmt"
	"time"

	"chansage/internal/metrics"

	"github.com/sashabaranov/go-openai"
)

// Completer generates text from a prompt. Callers must not assume
// repeatability; determinism is what the underlying model provides.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int) (string, error)
}

type CompletionService struct {
	client *openai.Client
	model  string
}

func NewCompletionService(apiKey string) *CompletionService {
	return &CompletionService{
		client: openai.NewClient(apiKey),
		model:  "gpt-4o-mini",
	}
}

func (c *CompletionService) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
	})

	if err != nil {
		metrics.CompletionCalls.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}

	metrics.CompletionCalls.WithLabelValues("success").Inc()
	metrics.CompletionCallDuration.Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
