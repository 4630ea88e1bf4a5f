package slack

import (
	"context"
	"fmt"
	"log/slog"

	"chansage/internal/metrics"

	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"
)

// apiClient covers the slice of the Slack Web API the fetcher uses.
// *slack.Client satisfies it; tests substitute a fake.
type apiClient interface {
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
}

// Fetcher reads channel history and thread replies from Slack.
// It holds no local state beyond the client.
type Fetcher struct {
	client           apiClient
	replyConcurrency int
}

// NewFetcher creates a Fetcher backed by the Slack Web API
func NewFetcher(botToken string, replyConcurrency int) *Fetcher {
	return NewFetcherWithClient(slack.New(botToken), replyConcurrency)
}

// NewFetcherWithClient creates a Fetcher with an injected API client
func NewFetcherWithClient(client apiClient, replyConcurrency int) *Fetcher {
	if replyConcurrency <= 0 {
		replyConcurrency = 5
	}
	return &Fetcher{
		client:           client,
		replyConcurrency: replyConcurrency,
	}
}

// ListChannels returns the channels visible to the bot
func (f *Fetcher) ListChannels(ctx context.Context) ([]Channel, error) {
	channels, _, err := f.client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
		Limit:           200,
		ExcludeArchived: true,
		Types:           []string{"public_channel"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	result := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		result = append(result, Channel{ID: ch.ID, Name: ch.Name})
	}
	return result, nil
}

// FetchHistory retrieves one page of channel history, enriching each message
// with its thread replies. Reply fetches for different messages run
// concurrently with a bounded fan-out; a failed reply fetch degrades that
// message's thread context but never fails the page. Messages without a
// timestamp identifier are skipped. The returned ordering matches the
// platform's history ordering.
func (f *Fetcher) FetchHistory(ctx context.Context, channelID string, limit int, cursor string) (*HistoryPage, error) {
	resp, err := f.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
		Cursor:    cursor,
	})
	if err != nil {
		metrics.SlackMessagesFetched.WithLabelValues(channelID, "error").Inc()
		return nil, fmt.Errorf("failed to fetch channel history: %w", err)
	}

	messages := make([]Message, 0, len(resp.Messages))
	for _, raw := range resp.Messages {
		if raw.Timestamp == "" {
			slog.Debug("Skipping message without timestamp", "channel", channelID)
			continue
		}
		messages = append(messages, Message{
			ChannelID:       channelID,
			Timestamp:       raw.Timestamp,
			UserID:          raw.User,
			Text:            raw.Text,
			ThreadTimestamp: raw.ThreadTimestamp,
		})
	}
	metrics.SlackMessagesFetched.WithLabelValues(channelID, "success").Add(float64(len(messages)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.replyConcurrency)

	for i := range messages {
		i := i
		g.Go(func() error {
			replies, err := f.fetchReplies(gctx, channelID, messages[i].Timestamp)
			if err != nil {
				// Partial-failure tolerance: log and continue with an
				// incomplete result set for this message.
				slog.Error("Failed to fetch thread replies",
					"error", err,
					"channel", channelID,
					"message_ts", messages[i].Timestamp)
				metrics.SlackReplyFetches.WithLabelValues("error").Inc()
				return nil
			}
			metrics.SlackReplyFetches.WithLabelValues("success").Inc()
			messages[i].Replies = replies
			return nil
		})
	}
	// Branches never return errors; Wait only joins them.
	_ = g.Wait()

	return &HistoryPage{
		Messages:   messages,
		NextCursor: resp.ResponseMetaData.NextCursor,
	}, nil
}

// fetchReplies returns the replies to a message, excluding the parent itself
func (f *Fetcher) fetchReplies(ctx context.Context, channelID, messageTS string) ([]Reply, error) {
	msgs, _, _, err := f.client.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: messageTS,
		Limit:     100,
		Inclusive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replies for %s: %w", messageTS, err)
	}

	var replies []Reply
	for _, msg := range msgs {
		if msg.Timestamp == messageTS || msg.Timestamp == "" {
			continue
		}
		replies = append(replies, Reply{
			Timestamp: msg.Timestamp,
			UserID:    msg.User,
			Text:      msg.Text,
		})
	}
	return replies, nil
}
