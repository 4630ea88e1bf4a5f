package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"chansage/internal/integrations/slack"
	"chansage/internal/storage"
	"chansage/internal/vectorstore"
)

type mockFetcher struct {
	page      *slack.HistoryPage
	err       error
	gotLimit  int
	gotCursor string
}

func (m *mockFetcher) FetchHistory(ctx context.Context, channelID string, limit int, cursor string) (*slack.HistoryPage, error) {
	m.gotLimit = limit
	m.gotCursor = cursor
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

// textEmbedder fails for any input containing failOn
type textEmbedder struct {
	failOn string
}

func (e *textEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding provider unavailable")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type mockStore struct {
	mu       sync.Mutex
	messages []storage.Message
	replies  []storage.Reply
	refs     []storage.EmbeddingRef
}

func (m *mockStore) SaveMessage(ctx context.Context, msg *storage.Message) error {
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockStore) SaveReplies(ctx context.Context, replies []storage.Reply) error {
	m.replies = append(m.replies, replies...)
	return nil
}

func (m *mockStore) SaveEmbeddingRef(ctx context.Context, ref *storage.EmbeddingRef) error {
	m.mu.Lock()
	m.refs = append(m.refs, *ref)
	m.mu.Unlock()
	return nil
}

func (m *mockStore) GetMessagesWithoutEmbeddings(ctx context.Context, limit int) ([]*storage.Message, error) {
	return nil, nil
}

func (m *mockStore) GetThreadReplies(ctx context.Context, channelID, threadTS string) ([]storage.Reply, error) {
	return nil, nil
}

func (m *mockStore) Close() error {
	return nil
}

func TestIngest_EmptyChannel(t *testing.T) {
	fetcher := &mockFetcher{page: &slack.HistoryPage{}}
	svc := NewIngestService(fetcher, &textEmbedder{}, &mockVectorStore{}, &mockStore{}, 2)

	result, err := svc.Ingest(context.Background(), "C123", 10, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Processed != 0 {
		t.Errorf("Expected processed 0, got %d", result.Processed)
	}
	if len(result.Messages) != 0 {
		t.Errorf("Expected empty result list, got %d entries", len(result.Messages))
	}
}

func TestIngest_DefaultPageLimit(t *testing.T) {
	fetcher := &mockFetcher{page: &slack.HistoryPage{}}
	svc := NewIngestService(fetcher, &textEmbedder{}, &mockVectorStore{}, &mockStore{}, 2)

	if _, err := svc.Ingest(context.Background(), "C123", 0, "cursor-token"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if fetcher.gotLimit != DefaultPageLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultPageLimit, fetcher.gotLimit)
	}
	if fetcher.gotCursor != "cursor-token" {
		t.Errorf("Cursor should be passed through opaquely, got %q", fetcher.gotCursor)
	}
}

func TestIngest_FetchFailureIsFatal(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("slack unavailable")}
	svc := NewIngestService(fetcher, &textEmbedder{}, &mockVectorStore{}, &mockStore{}, 2)

	if _, err := svc.Ingest(context.Background(), "C123", 10, ""); err == nil {
		t.Fatalf("Expected error when history fetch fails")
	}
}

func TestIngest_PerMessageFailureKeepsPosition(t *testing.T) {
	fetcher := &mockFetcher{page: &slack.HistoryPage{Messages: []slack.Message{
		{ChannelID: "C123", Timestamp: "1111.0001", Text: "deploy went fine"},
		{ChannelID: "C123", Timestamp: "1111.0002", Text: "this one will explode"},
		{ChannelID: "C123", Timestamp: "1111.0003", Text: "rollback complete"},
	}}}
	vectors := &mockVectorStore{}
	svc := NewIngestService(fetcher, &textEmbedder{failOn: "explode"}, vectors, &mockStore{}, 2)

	result, err := svc.Ingest(context.Background(), "C123", 10, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Processed != 3 {
		t.Errorf("Processed should count attempted entries, got %d", result.Processed)
	}
	if len(result.Messages) != 3 {
		t.Fatalf("Expected 3 positional entries, got %d", len(result.Messages))
	}
	if result.Messages[0] == nil || result.Messages[0].ID != "1111.0001" {
		t.Errorf("Entry 0 lost its position: %+v", result.Messages[0])
	}
	if result.Messages[1] != nil {
		t.Errorf("Failed entry should be a nil placeholder, got %+v", result.Messages[1])
	}
	if result.Messages[2] == nil || result.Messages[2].ID != "1111.0003" {
		t.Errorf("Entry 2 lost its position: %+v", result.Messages[2])
	}

	if len(vectors.upserted) != 2 {
		t.Errorf("Expected 2 upserts, got %d", len(vectors.upserted))
	}
}

func TestIngest_ThreadContextEmbedsMessageAndReplies(t *testing.T) {
	fetcher := &mockFetcher{page: &slack.HistoryPage{Messages: []slack.Message{
		{
			ChannelID: "C123",
			Timestamp: "1111.0001",
			Text:      "anyone seen the build break?",
			Replies: []slack.Reply{
				{Timestamp: "1111.0002", Text: "yes, flaky test again"},
				{Timestamp: "1111.0003", Text: "fixed in #482"},
			},
		},
	}}}
	vectors := &mockVectorStore{}
	store := &mockStore{}
	svc := NewIngestService(fetcher, &textEmbedder{}, vectors, store, 2)

	result, err := svc.Ingest(context.Background(), "C123", 10, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(vectors.upserted) != 1 {
		t.Fatalf("Expected exactly one upsert, got %d", len(vectors.upserted))
	}

	rec := vectors.upserted[0]
	expected := "anyone seen the build break?\nyes, flaky test again\nfixed in #482"
	if rec.Content != expected {
		t.Errorf("Context text mismatch:\nexpected %q\ngot      %q", expected, rec.Content)
	}
	if rec.Namespace != "C123" {
		t.Errorf("Namespace should be the channel id, got %q", rec.Namespace)
	}
	if rec.ID != "1111.0001" {
		t.Errorf("Record id should be the message id, got %q", rec.ID)
	}

	if result.Messages[0].Content != expected {
		t.Errorf("Response content should match embedded content, got %q", result.Messages[0].Content)
	}
	if result.Messages[0].Vectors != 1 {
		t.Errorf("Expected 1 vector written, got %d", result.Messages[0].Vectors)
	}
}

func TestIngest_PersistsRawMessagesAndReplies(t *testing.T) {
	fetcher := &mockFetcher{page: &slack.HistoryPage{Messages: []slack.Message{
		{
			ChannelID: "C123",
			Timestamp: "1111.0001",
			UserID:    "U1",
			Text:      "root message",
			Replies: []slack.Reply{
				{Timestamp: "1111.0002", UserID: "U2", Text: "a reply"},
			},
		},
	}}}
	store := &mockStore{}
	svc := NewIngestService(fetcher, &textEmbedder{}, &mockVectorStore{}, store, 2)

	if _, err := svc.Ingest(context.Background(), "C123", 10, ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(store.messages) != 1 {
		t.Fatalf("Expected 1 persisted message, got %d", len(store.messages))
	}
	if store.messages[0].Text != "root message" {
		t.Errorf("Persisted wrong text: %q", store.messages[0].Text)
	}
	if len(store.replies) != 1 || store.replies[0].Text != "a reply" {
		t.Errorf("Expected persisted reply, got %+v", store.replies)
	}
	if len(store.refs) != 1 {
		t.Fatalf("Expected 1 embedding ref, got %d", len(store.refs))
	}
	if store.refs[0].ContentHash != storage.HashContent("root message\na reply") {
		t.Errorf("Embedding ref hash should cover the embedded context text")
	}
	if store.refs[0].VectorID != vectorstore.PointID("C123", "1111.0001") {
		t.Errorf("Embedding ref must record the vector-store point id, got %q", store.refs[0].VectorID)
	}
}
