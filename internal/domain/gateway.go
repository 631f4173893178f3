package domain

import "context"

// HistoryFunc receives one historical message during a replay.
// Returning a non-nil error stops the iteration.
type HistoryFunc func(Message) error

// Gateway is the interface to the chat platform (Discord).
type Gateway interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error

	// Send posts a new message and returns the posted message's id.
	Send(ctx context.Context, channelID, content string) (string, error)

	// Edit replaces the content of a previously sent message.
	Edit(ctx context.Context, channelID, messageID, content string) error

	// History streams the channel's full message history through fn in the
	// platform's own order, until exhaustion or fn returns an error.
	History(ctx context.Context, channelID string, fn HistoryFunc) error
}
