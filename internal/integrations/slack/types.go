package slack

import "strings"

// Channel is a Slack channel the bot can read
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a channel message enriched with its thread replies.
// The Slack timestamp doubles as the message identifier within a channel.
type Message struct {
	ChannelID       string  `json:"channel_id"`
	Timestamp       string  `json:"timestamp"`
	UserID          string  `json:"user_id"`
	Text            string  `json:"text"`
	ThreadTimestamp string  `json:"thread_timestamp,omitempty"`
	Replies         []Reply `json:"replies,omitempty"`
}

// Reply is a single threaded reply to a Message
type Reply struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// HistoryPage is one page of channel history plus the platform's opaque
// pagination cursor
type HistoryPage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// ContextText concatenates the message text with all reply texts,
// newline-joined, in thread order. This is the text that gets embedded.
func (m Message) ContextText() string {
	parts := make([]string, 0, len(m.Replies)+1)
	parts = append(parts, m.Text)
	for _, r := range m.Replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}
