package chat

import (
	"context"
	"time"
)

// Message is a single channel message as seen by the bot.
// ID is the platform timestamp identifier (Slack "ts").
type Message struct {
	ID       string
	Channel  string
	User     string
	BotID    string
	Subtype  string
	Text     string
	PostedAt time.Time
}

// Store abstracts the conversation platform.
// History returns messages in the platform's native order.
// Implementations must be safe for concurrent use.
type Store interface {
	History(ctx context.Context, channelID string, limit int) ([]Message, error)
	Permalink(ctx context.Context, channelID, messageID string) (string, error)
	Post(ctx context.Context, channelID, text string) (Message, error)
	Delete(ctx context.Context, channelID, messageID string) error
}
