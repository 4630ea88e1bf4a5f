package storage

import (
	"context"
	"time"
)

// Message is a raw channel message row. Postgres holds these for durability
// and audit; similarity search lives entirely in the vector index.
type Message struct {
	ChannelID string    `json:"channel_id"`
	MessageTS string    `json:"message_ts"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	ThreadTS  string    `json:"thread_ts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reply is a threaded reply row, ordered by its timestamp within the thread
type Reply struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
	ReplyTS   string `json:"reply_ts"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// EmbeddingRef correlates a message with its vector-store point. The embedding
// column is an audit copy of the upserted vector, not a search index.
type EmbeddingRef struct {
	ChannelID   string    `json:"channel_id"`
	MessageTS   string    `json:"message_ts"`
	VectorID    string    `json:"vector_id"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	SaveMessage(ctx context.Context, msg *Message) error
	SaveReplies(ctx context.Context, replies []Reply) error
	SaveEmbeddingRef(ctx context.Context, ref *EmbeddingRef) error
	GetMessagesWithoutEmbeddings(ctx context.Context, limit int) ([]*Message, error)
	GetThreadReplies(ctx context.Context, channelID, threadTS string) ([]Reply, error)
	Close() error
}
