package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chansage/internal/metrics"
	"chansage/internal/vectorstore"
)

// NoContextAnswer is returned verbatim when no stored entry clears the
// similarity threshold; the completion client is not called in that case.
const NoContextAnswer = "I don't have enough information in the stored conversations to answer that."

const (
	completionTemperature float32 = 0.3
	completionMaxTokens           = 500
)

const systemPrompt = "You answer questions using only the conversation excerpts supplied in the context block. " +
	"If the context does not contain the answer, say so explicitly instead of guessing."

// RAGService answers a question by embedding it, retrieving the most similar
// stored entries from the channel namespace, and asking the completion client
// for an answer grounded in those entries.
type RAGService struct {
	embedder  Embedder
	vectors   vectorstore.Store
	completer Completer
	namespace string
	topK      int
	threshold float64
}

// Source is a match that contributed to an answer
type Source struct {
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

func NewRAGService(embedder Embedder, vectors vectorstore.Store, completer Completer, namespace string, topK int, threshold float64) *RAGService {
	if topK <= 0 {
		topK = 3
	}
	return &RAGService{
		embedder:  embedder,
		vectors:   vectors,
		completer: completer,
		namespace: namespace,
		topK:      topK,
		threshold: threshold,
	}
}

// Ask runs the full retrieval flow for a question. Every upstream failure is
// fatal for the request; the whole answer depends on a single chain of calls.
func (r *RAGService) Ask(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	queryEmbedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		metrics.QuestionsProcessed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.vectors.Query(ctx, r.namespace, queryEmbedding, r.topK)
	if err != nil {
		metrics.QuestionsProcessed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	relevant := r.filterByThreshold(matches)
	slog.Info("Similarity filtering completed",
		"matches", len(matches),
		"relevant", len(relevant),
		"threshold", r.threshold)

	if len(relevant) == 0 {
		metrics.QuestionsProcessed.WithLabelValues("no_context").Inc()
		return &Answer{
			Answer:  NoContextAnswer,
			Sources: []Source{},
		}, nil
	}

	answer, err := r.generateAnswer(ctx, query, relevant)
	if err != nil {
		metrics.QuestionsProcessed.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	sources := make([]Source, 0, len(relevant))
	for _, m := range r.filterByThreshold(relevant) {
		sources = append(sources, Source{Score: m.Score, Content: m.Content})
	}

	metrics.QuestionsProcessed.WithLabelValues("success").Inc()
	metrics.QuestionDuration.Observe(time.Since(start).Seconds())

	return &Answer{
		Answer:  answer,
		Sources: sources,
	}, nil
}

// filterByThreshold keeps matches strictly above the minimum acceptable score
func (r *RAGService) filterByThreshold(matches []vectorstore.Match) []vectorstore.Match {
	var relevant []vectorstore.Match
	for _, m := range matches {
		if m.Score > r.threshold {
			relevant = append(relevant, m)
		}
	}
	return relevant
}

func (r *RAGService) generateAnswer(ctx context.Context, query string, matches []vectorstore.Match) (string, error) {
	// Context block preserves the store's ranking order.
	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		contents = append(contents, m.Content)
	}
	contextBlock := strings.Join(contents, "\n\n")

	userPrompt := fmt.Sprintf(`Answer the question using only the context below. If the context is insufficient, say so.

Context:
%s

Question: %s`, contextBlock, query)

	return r.completer.Complete(ctx, systemPrompt, userPrompt, completionTemperature, completionMaxTokens)
}
