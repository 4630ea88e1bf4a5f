package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"chansage/internal/services"
)

// queryRequiredMessage is the exact client-input error body for /ask
const queryRequiredMessage = "Query is required and must be a string"

// Answerer runs the retrieval flow for a question
type Answerer interface {
	Ask(ctx context.Context, query string) (*services.Answer, error)
}

type AskHandler struct {
	answerer Answerer
}

type askRequest struct {
	Query string `json:"query"`
}

func NewAskHandler(answerer Answerer) *AskHandler {
	return &AskHandler{answerer: answerer}
}

// HandleAsk serves POST /ask. Invalid input fails fast with 400 before any
// downstream call; every upstream failure maps to 500.
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, queryRequiredMessage)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, queryRequiredMessage)
		return
	}

	answer, err := h.answerer.Ask(r.Context(), req.Query)
	if err != nil {
		slog.Error("Failed to answer query", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
