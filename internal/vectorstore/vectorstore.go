package vectorstore

import "context"

// Record is an embedding stored in the vector index. ID is unique within its
// Namespace; Content is the text the vector was computed from, carried as
// payload so query results can be used directly as completion context.
type Record struct {
	ID        string
	Namespace string
	Vector    []float32
	Content   string
}

// Match is one similarity search result. Score is an opaque ranking key in
// [0, 1]; callers apply their own minimum-acceptable-score filter.
type Match struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

// Store persists embedding records and answers similarity queries.
type Store interface {
	// Upsert inserts or replaces the record at its id within its namespace.
	// Idempotent by id.
	Upsert(ctx context.Context, rec Record) error
	// Query returns up to topK matches in the namespace, sorted by
	// descending similarity.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}
