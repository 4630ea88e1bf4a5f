package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chansage/internal/services"

	"github.com/gorilla/mux"
)

type mockIngestor struct {
	result     *services.IngestResult
	err        error
	gotChannel string
	gotLimit   int
	gotCursor  string
}

func (m *mockIngestor) Ingest(ctx context.Context, channelID string, limit int, cursor string) (*services.IngestResult, error) {
	m.gotChannel = channelID
	m.gotLimit = limit
	m.gotCursor = cursor
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func newIngestRouter(ingestor *mockIngestor) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ingest/{channelId}", NewIngestHandler(ingestor).HandleIngest).Methods("POST")
	return router
}

func TestHandleIngest_PassesChannelAndDefaults(t *testing.T) {
	ingestor := &mockIngestor{result: &services.IngestResult{Processed: 0, Messages: []*services.IngestedMessage{}}}
	router := newIngestRouter(ingestor)

	req := httptest.NewRequest("POST", "/ingest/C042", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ingestor.gotChannel != "C042" {
		t.Errorf("Expected channel C042, got %q", ingestor.gotChannel)
	}
	if ingestor.gotLimit != services.DefaultPageLimit {
		t.Errorf("Expected default limit %d, got %d", services.DefaultPageLimit, ingestor.gotLimit)
	}
}

func TestHandleIngest_QueryParameters(t *testing.T) {
	ingestor := &mockIngestor{result: &services.IngestResult{Messages: []*services.IngestedMessage{}}}
	router := newIngestRouter(ingestor)

	req := httptest.NewRequest("POST", "/ingest/C042?limit=25&cursor=abc123", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ingestor.gotLimit != 25 {
		t.Errorf("Expected limit 25, got %d", ingestor.gotLimit)
	}
	if ingestor.gotCursor != "abc123" {
		t.Errorf("Expected cursor abc123, got %q", ingestor.gotCursor)
	}
}

func TestHandleIngest_InvalidLimit(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "0"} {
		t.Run(raw, func(t *testing.T) {
			ingestor := &mockIngestor{}
			router := newIngestRouter(ingestor)

			req := httptest.NewRequest("POST", "/ingest/C042?limit="+raw, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400 for limit %q, got %d", raw, rr.Code)
			}
		})
	}
}

func TestHandleIngest_NullPlaceholdersSurviveSerialization(t *testing.T) {
	ingestor := &mockIngestor{result: &services.IngestResult{
		Processed: 2,
		Messages: []*services.IngestedMessage{
			{ID: "1111.0001", Content: "fine", Vectors: 1},
			nil,
		},
	}}
	router := newIngestRouter(ingestor)

	req := httptest.NewRequest("POST", "/ingest/C042", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var body struct {
		Processed int               `json:"processed"`
		Messages  []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if body.Processed != 2 {
		t.Errorf("Expected processed 2, got %d", body.Processed)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("Expected 2 positional entries, got %d", len(body.Messages))
	}
	if string(body.Messages[1]) != "null" {
		t.Errorf("Failed entry should serialize as null, got %s", body.Messages[1])
	}
}

func TestHandleIngest_UpstreamFailure(t *testing.T) {
	ingestor := &mockIngestor{err: errors.New("slack unavailable")}
	router := newIngestRouter(ingestor)

	req := httptest.NewRequest("POST", "/ingest/C042", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if body["error"] == "" {
		t.Errorf("Expected an error field in the response body")
	}
}
