package services

import (
	"context"
	"fmt"
	"log/slog"

	"chansage/internal/integrations/slack"
	"chansage/internal/metrics"
	"chansage/internal/storage"
	"chansage/internal/vectorstore"

	"golang.org/x/sync/errgroup"
)

// DefaultPageLimit bounds an ingestion page when the caller does not
const DefaultPageLimit = 10

// HistoryFetcher is the slice of the Slack integration the orchestrator uses
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, channelID string, limit int, cursor string) (*slack.HistoryPage, error)
}

// IngestService composes the history fetcher, the embedding client and the
// vector store: fetch a page of messages, persist them, then embed and upsert
// each message's thread context under a namespace keyed by channel.
type IngestService struct {
	fetcher     HistoryFetcher
	embedder    Embedder
	vectors     vectorstore.Store
	store       storage.Store
	concurrency int
}

// IngestedMessage is the per-entry outcome of an ingestion batch
type IngestedMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Vectors int    `json:"vectors"`
}

// IngestResult reports one ingestion batch. Messages preserves positional
// correspondence with the fetched page: entries that failed embed+upsert stay
// nil. Processed counts attempted entries, failed ones included.
type IngestResult struct {
	Processed int                `json:"processed"`
	Messages  []*IngestedMessage `json:"messages"`
}

func NewIngestService(fetcher HistoryFetcher, embedder Embedder, vectors vectorstore.Store, store storage.Store, concurrency int) *IngestService {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &IngestService{
		fetcher:     fetcher,
		embedder:    embedder,
		vectors:     vectors,
		store:       store,
		concurrency: concurrency,
	}
}

// Ingest runs one ingestion batch for a channel. A history fetch failure is
// fatal for the batch; per-message embed/upsert failures are logged and
// recorded as nil entries without aborting the rest.
func (s *IngestService) Ingest(ctx context.Context, channelID string, limit int, cursor string) (*IngestResult, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	page, err := s.fetcher.FetchHistory(ctx, channelID, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel history: %w", err)
	}

	slog.Info("Ingestion batch fetched",
		"channel", channelID,
		"messages", len(page.Messages),
		"limit", limit)

	s.persistRaw(ctx, page.Messages)

	results := make([]*IngestedMessage, len(page.Messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range page.Messages {
		i := i
		msg := page.Messages[i]
		g.Go(func() error {
			entry, err := s.ingestMessage(gctx, msg)
			if err != nil {
				slog.Error("Failed to ingest message",
					"error", err,
					"channel", channelID,
					"message_ts", msg.Timestamp)
				metrics.MessagesIngested.WithLabelValues(channelID, "error").Inc()
				return nil
			}
			metrics.MessagesIngested.WithLabelValues(channelID, "success").Inc()
			results[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	return &IngestResult{
		Processed: len(page.Messages),
		Messages:  results,
	}, nil
}

// ingestMessage embeds one message's thread context and upserts it into the
// vector store under the channel namespace
func (s *IngestService) ingestMessage(ctx context.Context, msg slack.Message) (*IngestedMessage, error) {
	content := msg.ContextText()

	embedding, err := s.embedder.GenerateEmbedding(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	rec := vectorstore.Record{
		ID:        msg.Timestamp,
		Namespace: msg.ChannelID,
		Vector:    embedding,
		Content:   content,
	}
	if err := s.vectors.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("vector upsert failed: %w", err)
	}

	// The mapping row is audit data; a failure here does not undo a
	// completed upsert.
	ref := &storage.EmbeddingRef{
		ChannelID:   msg.ChannelID,
		MessageTS:   msg.Timestamp,
		VectorID:    vectorstore.PointID(msg.ChannelID, msg.Timestamp),
		ContentHash: storage.HashContent(content),
		Embedding:   embedding,
	}
	if err := s.store.SaveEmbeddingRef(ctx, ref); err != nil {
		slog.Error("Failed to save embedding ref",
			"error", err,
			"channel", msg.ChannelID,
			"message_ts", msg.Timestamp)
	}

	return &IngestedMessage{
		ID:      msg.Timestamp,
		Content: content,
		Vectors: 1,
	}, nil
}

// persistRaw writes fetched messages and replies to Postgres. Persistence
// failures are logged but do not block embedding; the relational copy is for
// durability, not correctness of the search path.
func (s *IngestService) persistRaw(ctx context.Context, messages []slack.Message) {
	for _, msg := range messages {
		row := &storage.Message{
			ChannelID: msg.ChannelID,
			MessageTS: msg.Timestamp,
			UserID:    msg.UserID,
			Text:      msg.Text,
			ThreadTS:  msg.ThreadTimestamp,
		}
		if err := s.store.SaveMessage(ctx, row); err != nil {
			slog.Error("Failed to persist message",
				"error", err,
				"channel", msg.ChannelID,
				"message_ts", msg.Timestamp)
			continue
		}

		if len(msg.Replies) == 0 {
			continue
		}
		replies := make([]storage.Reply, 0, len(msg.Replies))
		for _, r := range msg.Replies {
			replies = append(replies, storage.Reply{
				ChannelID: msg.ChannelID,
				ThreadTS:  msg.Timestamp,
				ReplyTS:   r.Timestamp,
				UserID:    r.UserID,
				Text:      r.Text,
			})
		}
		if err := s.store.SaveReplies(ctx, replies); err != nil {
			slog.Error("Failed to persist thread replies",
				"error", err,
				"channel", msg.ChannelID,
				"thread_ts", msg.Timestamp)
		}
	}
}
