package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionKey(t *testing.T) {
	ev := InboundEvent{Channel: "telegram", ChatID: "12345"}
	if got := ev.SessionKey(); got != "telegram:12345" {
		t.Fatalf("SessionKey() = %q", got)
	}
}

func TestPublishInboundStampsTimestamp(t *testing.T) {
	b := NewMessageBus()
	b.PublishInbound(&InboundEvent{Channel: "telegram", ChatID: "1", Data: "start"})

	ev, err := b.ConsumeInbound(context.Background())
	if err != nil {
		t.Fatalf("ConsumeInbound: %v", err)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("timestamp not stamped")
	}
}

func TestConsumeInboundHonorsContext(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.ConsumeInbound(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestDispatchOutboundRoutesByChannel(t *testing.T) {
	b := NewMessageBus()
	telegram := make(chan *OutboundMessage, 4)
	slack := make(chan *OutboundMessage, 4)
	b.Subscribe("telegram", func(m *OutboundMessage) error { telegram <- m; return nil })
	b.Subscribe("slack", func(m *OutboundMessage) error { slack <- m; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.PublishOutbound(&OutboundMessage{Channel: "telegram", ChatID: "1", Text: "hello"})

	select {
	case m := <-telegram:
		if m.Text != "hello" {
			t.Fatalf("text = %q", m.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	select {
	case m := <-slack:
		t.Fatalf("slack received telegram traffic: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliveryHookSeesSendOutcome(t *testing.T) {
	b := NewMessageBus()
	sendErr := errors.New("surface unreachable")
	b.Subscribe("telegram", func(m *OutboundMessage) error {
		if m.Text == "bad" {
			return sendErr
		}
		return nil
	})

	type outcome struct {
		jobID string
		err   error
	}
	outcomes := make(chan outcome, 4)
	b.OnDelivery(func(m *OutboundMessage, err error) {
		outcomes <- outcome{jobID: m.JobID, err: err}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.PublishOutbound(&OutboundMessage{Channel: "telegram", ChatID: "1", JobID: "task-1", Text: "ok"})
	b.PublishOutbound(&OutboundMessage{Channel: "telegram", ChatID: "1", JobID: "task-2", Text: "bad"})

	for _, want := range []outcome{{jobID: "task-1", err: nil}, {jobID: "task-2", err: sendErr}} {
		select {
		case got := <-outcomes:
			if got.jobID != want.jobID || !errors.Is(got.err, want.err) {
				t.Fatalf("outcome = %+v, want %+v", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("delivery hook not invoked")
		}
	}
}
