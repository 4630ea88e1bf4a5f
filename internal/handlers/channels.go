package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"chansage/internal/integrations/slack"
)

// ChannelLister lists the channels available for ingestion
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]slack.Channel, error)
}

type ChannelsHandler struct {
	lister ChannelLister
}

func NewChannelsHandler(lister ChannelLister) *ChannelsHandler {
	return &ChannelsHandler{lister: lister}
}

func (h *ChannelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	channels, err := h.lister.ListChannels(r.Context())
	if err != nil {
		slog.Error("Failed to list channels", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if channels == nil {
		channels = []slack.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}
