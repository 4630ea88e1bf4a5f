package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chansage/internal/metrics"
	"chansage/internal/storage"
	"chansage/internal/vectorstore"
)

// Embedder is the slice of the embedding service the backfill needs
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// BackfillProcessor retries embed+upsert for persisted messages that have no
// vector-store record, picking up ingestion-time per-item failures.
type BackfillProcessor struct {
	store     storage.Store
	embedder  Embedder
	vectors   vectorstore.Store
	batchSize int
	interval  time.Duration
	done      chan struct{}
}

func NewBackfillProcessor(store storage.Store, embedder Embedder, vectors vectorstore.Store) *BackfillProcessor {
	return &BackfillProcessor{
		store:     store,
		embedder:  embedder,
		vectors:   vectors,
		batchSize: 10,
		interval:  60 * time.Second,
		done:      make(chan struct{}),
	}
}

// Start begins the background processing loop
func (b *BackfillProcessor) Start(ctx context.Context) {
	slog.Info("Starting embedding backfill processor",
		"batch_size", b.batchSize,
		"interval", b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Backfill processor stopped due to context cancellation")
			return
		case <-b.done:
			slog.Info("Backfill processor stopped")
			return
		case <-ticker.C:
			if err := b.processBatch(ctx); err != nil {
				slog.Error("Failed to process backfill batch", "error", err)
			}
		}
	}
}

// Stop stops the backfill processor
func (b *BackfillProcessor) Stop() {
	close(b.done)
}

func (b *BackfillProcessor) processBatch(ctx context.Context) error {
	messages, err := b.store.GetMessagesWithoutEmbeddings(ctx, b.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get messages without embeddings: %w", err)
	}
	metrics.MessagesAwaitingEmbedding.Set(float64(len(messages)))

	if len(messages) == 0 {
		slog.Debug("No messages awaiting embedding")
		return nil
	}

	slog.Info("Processing backfill batch", "count", len(messages))

	for _, msg := range messages {
		if err := b.processMessage(ctx, msg); err != nil {
			slog.Error("Failed to backfill message embedding",
				"error", err,
				"channel", msg.ChannelID,
				"message_ts", msg.MessageTS)
			continue
		}
	}

	return nil
}

func (b *BackfillProcessor) processMessage(ctx context.Context, msg *storage.Message) error {
	replies, err := b.store.GetThreadReplies(ctx, msg.ChannelID, msg.MessageTS)
	if err != nil {
		return fmt.Errorf("failed to load thread replies: %w", err)
	}

	parts := make([]string, 0, len(replies)+1)
	parts = append(parts, msg.Text)
	for _, r := range replies {
		parts = append(parts, r.Text)
	}
	content := strings.Join(parts, "\n")

	embedding, err := b.embedder.GenerateEmbedding(ctx, content)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	rec := vectorstore.Record{
		ID:        msg.MessageTS,
		Namespace: msg.ChannelID,
		Vector:    embedding,
		Content:   content,
	}
	if err := b.vectors.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("vector upsert failed: %w", err)
	}

	ref := &storage.EmbeddingRef{
		ChannelID:   msg.ChannelID,
		MessageTS:   msg.MessageTS,
		VectorID:    vectorstore.PointID(msg.ChannelID, msg.MessageTS),
		ContentHash: storage.HashContent(content),
		Embedding:   embedding,
	}
	if err := b.store.SaveEmbeddingRef(ctx, ref); err != nil {
		return fmt.Errorf("failed to save embedding ref: %w", err)
	}

	slog.Debug("Backfilled message embedding",
		"channel", msg.ChannelID,
		"message_ts", msg.MessageTS)
	return nil
}
