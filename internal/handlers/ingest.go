package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"chansage/internal/services"

	"github.com/gorilla/mux"
)

// Ingestor runs one ingestion batch for a channel
type Ingestor interface {
	Ingest(ctx context.Context, channelID string, limit int, cursor string) (*services.IngestResult, error)
}

type IngestHandler struct {
	ingestor Ingestor
}

func NewIngestHandler(ingestor Ingestor) *IngestHandler {
	return &IngestHandler{ingestor: ingestor}
}

// HandleIngest serves POST /ingest/{channelId}. Page size comes from the
// optional "limit" query parameter; "cursor" is passed through opaquely to
// the platform's pagination.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelId"]
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "Channel id is required")
		return
	}

	limit := services.DefaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	cursor := r.URL.Query().Get("cursor")

	result, err := h.ingestor.Ingest(r.Context(), channelID, limit, cursor)
	if err != nil {
		slog.Error("Ingestion failed", "error", err, "channel", channelID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
