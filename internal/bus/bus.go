// Package bus provides the async message bus between chat channels and the dispatcher.
package bus

import (
	"context"
	"sync"
	"time"
)

// Button is one pressable control in a keyboard row. Data carries the opaque
// callback token exactly as the dispatcher will receive it back.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// InboundEvent represents a button press or command from a channel.
type InboundEvent struct {
	Channel   string    `json:"channel"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	MessageID string    `json:"message_id,omitempty"`
	Data      string    `json:"data"`
	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionKey identifies the conversation this event belongs to.
func (e *InboundEvent) SessionKey() string {
	return e.Channel + ":" + e.ChatID
}

// OutboundMessage represents a screen or notification for a channel to render.
// When EditMessageID is set the channel should replace that message in place;
// a no-op edit that reproduces the identical screen must be tolerated silently.
type OutboundMessage struct {
	Channel       string     `json:"channel"`
	ChatID        string     `json:"chat_id"`
	TraceID       string     `json:"trace_id"`
	JobID         string     `json:"job_id,omitempty"`
	Text          string     `json:"text"`
	Keyboard      [][]Button `json:"keyboard,omitempty"`
	EditMessageID string     `json:"edit_message_id,omitempty"`
}

// SubscribeFunc delivers one outbound message to a surface, reporting
// whether the send succeeded.
type SubscribeFunc func(*OutboundMessage) error

// DeliveryFunc observes the outcome of one outbound delivery.
type DeliveryFunc func(msg *OutboundMessage, err error)

// MessageBus decouples channels from the dispatcher core.
type MessageBus struct {
	inbound  chan *InboundEvent
	outbound chan *OutboundMessage
	subs     map[string][]SubscribeFunc
	hooks    []DeliveryFunc
	mu       sync.RWMutex
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan *InboundEvent, 100),
		outbound: make(chan *OutboundMessage, 100),
		subs:     make(map[string][]SubscribeFunc),
	}
}

// PublishInbound sends an event from a channel to the dispatcher.
func (b *MessageBus) PublishInbound(ev *InboundEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.inbound <- ev
}

// ConsumeInbound blocks until an event is available or context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundEvent, error) {
	select {
	case ev := <-b.inbound:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishOutbound sends a message from the dispatcher to channels.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	b.outbound <- msg
}

// Subscribe registers a callback for outbound messages to a specific channel.
func (b *MessageBus) Subscribe(channel string, callback SubscribeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[channel] = append(b.subs[channel], callback)
}

// OnDelivery registers a hook observing every outbound delivery outcome.
func (b *MessageBus) OnDelivery(hook DeliveryFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hooks = append(b.hooks, hook)
}

// DispatchOutbound runs the outbound message dispatcher.
// This should be run as a goroutine.
func (b *MessageBus) DispatchOutbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.outbound:
			b.mu.RLock()
			callbacks := b.subs[msg.Channel]
			hooks := b.hooks
			b.mu.RUnlock()

			var sendErr error
			for _, cb := range callbacks {
				if err := cb(msg); err != nil {
					sendErr = err
				}
			}
			for _, hook := range hooks {
				hook(msg, sendErr)
			}
		}
	}
}

// InboundSize returns the number of pending inbound events.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}

// OutboundSize returns the number of pending outbound messages.
func (b *MessageBus) OutboundSize() int {
	return len(b.outbound)
}
