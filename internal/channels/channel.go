package channels

import (
	"context"

	"github.com/PanelPilot/PanelPilot/internal/bus"
)

// Channel defines the interface for chat surfaces (Telegram, Slack, ...).
type Channel interface {
	// Name returns the channel name (e.g. "telegram").
	Name() string
	// Start starts the channel listener.
	Start(ctx context.Context) error
	// Stop stops the channel listener.
	Stop() error
	// Send renders an outbound screen or notification on the surface.
	Send(ctx context.Context, msg *bus.OutboundMessage) error
}

// BaseChannel provides common functionality for channels.
type BaseChannel struct {
	Bus *bus.MessageBus
}

// NotAuthorizedNotice is the fixed text shown to senders outside the
// allow-list. Rejection happens in the channel; rejected events never reach
// the dispatcher.
const NotAuthorizedNotice = "🚫 You are not authorized to operate this bot."

// Authorized checks a sender against the operator allow-list. An empty list
// denies everyone; this is an operator tool, not a public bot.
func Authorized(allowFrom []string, senderID string) bool {
	for _, allowed := range allowFrom {
		if allowed == senderID {
			return true
		}
	}
	return false
}
