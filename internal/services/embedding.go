package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chansage/internal/metrics"

	"github.com/sashabaranov/go-openai"
)

// Embedder converts text into a fixed-dimension vector
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type EmbeddingService struct {
	client *openai.Client
}

func NewEmbeddingService(apiKey string) *EmbeddingService {
	client := openai.NewClient(apiKey)
	return &EmbeddingService{client: client}
}

func (e *EmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("input text cannot be empty")
	}
	text = truncateForTokenLimit(text)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.AdaEmbeddingV2,
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		metrics.EmbeddingGenerations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingGenerations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no embedding data returned")
	}

	metrics.EmbeddingGenerations.WithLabelValues("success").Inc()
	metrics.EmbeddingGenerationDuration.Observe(time.Since(start).Seconds())

	return resp.Data[0].Embedding, nil
}

// truncateForTokenLimit keeps input under the embedding model's 8K token
// limit, estimating 4 characters per token and preferring a word boundary
func truncateForTokenLimit(text string) string {
	const maxTokens = 8000
	const avgCharsPerToken = 4
	maxChars := maxTokens * avgCharsPerToken

	if len(text) <= maxChars {
		return text
	}

	truncated := text[:maxChars]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > maxChars-100 {
		truncated = truncated[:lastSpace]
	}
	return truncated
}
