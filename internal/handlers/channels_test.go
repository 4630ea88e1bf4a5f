package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chansage/internal/integrations/slack"
)

type mockLister struct {
	channels []slack.Channel
	err      error
}

func (m *mockLister) ListChannels(ctx context.Context) ([]slack.Channel, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.channels, nil
}

func TestHandleList_Success(t *testing.T) {
	handler := NewChannelsHandler(&mockLister{channels: []slack.Channel{
		{ID: "C1", Name: "general"},
		{ID: "C2", Name: "incidents"},
	}})

	req := httptest.NewRequest("GET", "/channels", nil)
	rr := httptest.NewRecorder()
	handler.HandleList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var channels []slack.Channel
	if err := json.Unmarshal(rr.Body.Bytes(), &channels); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if len(channels) != 2 || channels[0].Name != "general" {
		t.Errorf("Unexpected channels: %+v", channels)
	}
}

func TestHandleList_EmptyIsArrayNotNull(t *testing.T) {
	handler := NewChannelsHandler(&mockLister{})

	req := httptest.NewRequest("GET", "/channels", nil)
	rr := httptest.NewRecorder()
	handler.HandleList(rr, req)

	if got := rr.Body.String(); got != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", got)
	}
}

func TestHandleList_Failure(t *testing.T) {
	handler := NewChannelsHandler(&mockLister{err: errors.New("slack unavailable")})

	req := httptest.NewRequest("GET", "/channels", nil)
	rr := httptest.NewRecorder()
	handler.HandleList(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
}
