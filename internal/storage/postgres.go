package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"

	"chansage/internal/metrics"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

type PostgresStore struct {
	db        *sql.DB
	dimension int
}

func NewPostgresStore(databaseURL string, dimension int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &PostgresStore{db: db, dimension: dimension}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	if _, err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createMessagesTable := `
		CREATE TABLE IF NOT EXISTS messages (
			channel_id TEXT NOT NULL,
			message_ts TEXT NOT NULL,
			user_id TEXT,
			text TEXT NOT NULL,
			thread_ts TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (channel_id, message_ts)
		);
	`
	if _, err := s.db.Exec(createMessagesTable); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	createRepliesTable := `
		CREATE TABLE IF NOT EXISTS thread_replies (
			channel_id TEXT NOT NULL,
			thread_ts TEXT NOT NULL,
			reply_ts TEXT NOT NULL,
			user_id TEXT,
			text TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (channel_id, thread_ts, reply_ts)
		);
	`
	if _, err := s.db.Exec(createRepliesTable); err != nil {
		return fmt.Errorf("failed to create thread_replies table: %w", err)
	}

	createEmbeddingsTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS message_embeddings (
			channel_id TEXT NOT NULL,
			message_ts TEXT NOT NULL,
			vector_id TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (channel_id, message_ts)
		);
	`, s.dimension)
	if _, err := s.db.Exec(createEmbeddingsTable); err != nil {
		return fmt.Errorf("failed to create message_embeddings table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(channel_id, thread_ts);",
		"CREATE INDEX IF NOT EXISTS idx_replies_thread ON thread_replies(channel_id, thread_ts);",
		"CREATE INDEX IF NOT EXISTS idx_message_embeddings_vector_id ON message_embeddings(vector_id);",
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// SaveMessage upserts a raw message row. Re-ingesting a message supersedes the
// previous text rather than duplicating the row.
func (s *PostgresStore) SaveMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (channel_id, message_ts, user_id, text, thread_ts)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (channel_id, message_ts)
		DO UPDATE SET
			text = EXCLUDED.text,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ChannelID, msg.MessageTS, msg.UserID, msg.Text, msg.ThreadTS)
	if err != nil {
		metrics.DatabaseOperations.WithLabelValues("save_message", "error").Inc()
		return fmt.Errorf("failed to save message: %w", err)
	}
	metrics.DatabaseOperations.WithLabelValues("save_message", "success").Inc()
	return nil
}

func (s *PostgresStore) SaveReplies(ctx context.Context, replies []Reply) error {
	query := `
		INSERT INTO thread_replies (channel_id, thread_ts, reply_ts, user_id, text)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_id, thread_ts, reply_ts)
		DO UPDATE SET text = EXCLUDED.text
	`

	for _, r := range replies {
		if _, err := s.db.ExecContext(ctx, query,
			r.ChannelID, r.ThreadTS, r.ReplyTS, r.UserID, r.Text); err != nil {
			metrics.DatabaseOperations.WithLabelValues("save_reply", "error").Inc()
			return fmt.Errorf("failed to save reply %s: %w", r.ReplyTS, err)
		}
		metrics.DatabaseOperations.WithLabelValues("save_reply", "success").Inc()
	}
	return nil
}

func (s *PostgresStore) SaveEmbeddingRef(ctx context.Context, ref *EmbeddingRef) error {
	query := `
		INSERT INTO message_embeddings (channel_id, message_ts, vector_id, content_hash, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_id, message_ts)
		DO UPDATE SET
			vector_id = EXCLUDED.vector_id,
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			created_at = NOW()
	`

	var embedding interface{}
	if len(ref.Embedding) > 0 {
		embedding = pgvector.NewVector(ref.Embedding)
	}

	_, err := s.db.ExecContext(ctx, query,
		ref.ChannelID, ref.MessageTS, ref.VectorID, ref.ContentHash, embedding)
	if err != nil {
		metrics.DatabaseOperations.WithLabelValues("save_embedding_ref", "error").Inc()
		return fmt.Errorf("failed to save embedding ref: %w", err)
	}
	metrics.DatabaseOperations.WithLabelValues("save_embedding_ref", "success").Inc()
	return nil
}

// GetMessagesWithoutEmbeddings returns persisted messages that have no
// vector-store record yet, oldest first. These are ingestion-time per-item
// failures the backfill job retries.
func (s *PostgresStore) GetMessagesWithoutEmbeddings(ctx context.Context, limit int) ([]*Message, error) {
	query := `
		SELECT m.channel_id, m.message_ts, m.user_id, m.text,
			   COALESCE(m.thread_ts, ''), m.created_at, m.updated_at
		FROM messages m
		LEFT JOIN message_embeddings e
			ON m.channel_id = e.channel_id AND m.message_ts = e.message_ts
		WHERE e.message_ts IS NULL
		ORDER BY m.created_at ASC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages without embeddings: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(
			&msg.ChannelID, &msg.MessageTS, &msg.UserID, &msg.Text,
			&msg.ThreadTS, &msg.CreatedAt, &msg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStore) GetThreadReplies(ctx context.Context, channelID, threadTS string) ([]Reply, error) {
	query := `
		SELECT channel_id, thread_ts, reply_ts, user_id, text
		FROM thread_replies
		WHERE channel_id = $1 AND thread_ts = $2
		ORDER BY reply_ts ASC
	`

	rows, err := s.db.QueryContext(ctx, query, channelID, threadTS)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread replies: %w", err)
	}
	defer rows.Close()

	var replies []Reply
	for rows.Next() {
		var r Reply
		if err := rows.Scan(&r.ChannelID, &r.ThreadTS, &r.ReplyTS, &r.UserID, &r.Text); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		replies = append(replies, r)
	}

	return replies, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// HashContent generates a SHA256 hash of content
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}
