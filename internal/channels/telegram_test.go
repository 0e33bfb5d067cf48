package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PanelPilot/PanelPilot/internal/bus"
	"github.com/PanelPilot/PanelPilot/internal/config"
)

type tgCall struct {
	method  string
	payload map[string]any
}

// fakeTelegram records Bot API calls and serves scripted getUpdates batches.
type fakeTelegram struct {
	mu      sync.Mutex
	calls   []tgCall
	updates []string // raw update-array JSON, served once each, then empty
	fail    map[string]string
}

func (f *fakeTelegram) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]

		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)

		f.mu.Lock()
		f.calls = append(f.calls, tgCall{method: method, payload: payload})
		failDesc := f.fail[method]
		var batch string
		if method == "getUpdates" {
			if len(f.updates) > 0 {
				batch = f.updates[0]
				f.updates = f.updates[1:]
			} else {
				batch = "[]"
			}
		}
		f.mu.Unlock()

		if failDesc != "" {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": failDesc})
			return
		}
		if method == "getUpdates" {
			w.Write([]byte(`{"ok":true,"result":` + batch + `}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}
}

func (f *fakeTelegram) methodCalls(method string) []tgCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func newTelegramFixture(t *testing.T, fake *fakeTelegram, allowFrom []string) (*TelegramChannel, *bus.MessageBus) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	b := bus.NewMessageBus()
	c := NewTelegramChannel(config.TelegramConfig{
		Enabled:   true,
		Token:     "test-token",
		AllowFrom: allowFrom,
		APIBase:   srv.URL,
	}, b)
	return c, b
}

func waitInbound(t *testing.T, b *bus.MessageBus) *bus.InboundEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := b.ConsumeInbound(ctx)
	if err != nil {
		t.Fatalf("no inbound event: %v", err)
	}
	return ev
}

func TestTelegramCallbackBecomesInboundEvent(t *testing.T) {
	fake := &fakeTelegram{updates: []string{`[
		{"update_id": 10, "callback_query": {
			"id": "cb-1",
			"from": {"id": 42},
			"message": {"message_id": 77, "chat": {"id": 900}},
			"data": "account:acct-1"
		}}
	]`}}
	c, b := newTelegramFixture(t, fake, []string{"42"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ev := waitInbound(t, b)
	if ev.Channel != "telegram" || ev.Data != "account:acct-1" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.ChatID != "900" || ev.MessageID != "77" || ev.SenderID != "42" {
		t.Fatalf("event ids = %+v", ev)
	}
	if ev.TraceID == "" {
		t.Fatal("missing trace id")
	}

	acks := fake.methodCalls("answerCallbackQuery")
	if len(acks) != 1 {
		t.Fatalf("callback acks = %d, want 1", len(acks))
	}
	if _, hasText := acks[0].payload["text"]; hasText {
		t.Fatal("authorized ack must be empty, not an alert")
	}
}

func TestTelegramUnauthorizedCallbackGetsAlert(t *testing.T) {
	fake := &fakeTelegram{updates: []string{`[
		{"update_id": 10, "callback_query": {
			"id": "cb-1",
			"from": {"id": 13},
			"message": {"message_id": 77, "chat": {"id": 900}},
			"data": "start"
		}}
	]`}}
	c, b := newTelegramFixture(t, fake, []string{"42"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if acks := fake.methodCalls("answerCallbackQuery"); len(acks) > 0 {
			if acks[0].payload["text"] != NotAuthorizedNotice || acks[0].payload["show_alert"] != true {
				t.Fatalf("alert payload = %+v", acks[0].payload)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no callback answer observed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case ev := <-inboundProbe(b):
		t.Fatalf("unauthorized press reached the bus: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func inboundProbe(b *bus.MessageBus) chan *bus.InboundEvent {
	out := make(chan *bus.InboundEvent, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
		defer cancel()
		if ev, err := b.ConsumeInbound(ctx); err == nil {
			out <- ev
		}
	}()
	return out
}

func TestTelegramStartCommand(t *testing.T) {
	fake := &fakeTelegram{updates: []string{`[
		{"update_id": 10, "message": {
			"message_id": 5,
			"from": {"id": 42},
			"chat": {"id": 900},
			"text": "/start"
		}}
	]`}}
	c, b := newTelegramFixture(t, fake, []string{"42"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ev := waitInbound(t, b)
	if ev.Data != "start" || ev.ChatID != "900" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestTelegramSendBuildsInlineKeyboard(t *testing.T) {
	fake := &fakeTelegram{}
	c, _ := newTelegramFixture(t, fake, nil)

	err := c.Send(context.Background(), &bus.OutboundMessage{
		ChatID: "900",
		Text:   "Pick the account:",
		Keyboard: [][]bus.Button{
			{{Label: "acct-1", Data: "account:acct-1"}, {Label: "acct-2", Data: "account:acct-2"}},
			{{Label: "⬅️ Main menu", Data: "back:main"}},
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	sends := fake.methodCalls("sendMessage")
	if len(sends) != 1 {
		t.Fatalf("sendMessage calls = %d", len(sends))
	}
	markup := sends[0].payload["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	if len(rows) != 2 {
		t.Fatalf("keyboard rows = %d", len(rows))
	}
	first := rows[0].([]any)[0].(map[string]any)
	if first["text"] != "acct-1" || first["callback_data"] != "account:acct-1" {
		t.Fatalf("button = %v", first)
	}
}

func TestTelegramSendEditsInPlace(t *testing.T) {
	fake := &fakeTelegram{}
	c, _ := newTelegramFixture(t, fake, nil)

	err := c.Send(context.Background(), &bus.OutboundMessage{
		ChatID:        "900",
		Text:          "updated screen",
		EditMessageID: "77",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	edits := fake.methodCalls("editMessageText")
	if len(edits) != 1 {
		t.Fatalf("editMessageText calls = %d", len(edits))
	}
	if edits[0].payload["message_id"] != "77" {
		t.Fatalf("edit payload = %+v", edits[0].payload)
	}
	if len(fake.methodCalls("sendMessage")) != 0 {
		t.Fatal("edit fell back to sendMessage")
	}
}

func TestTelegramSendSwallowsNotModified(t *testing.T) {
	fake := &fakeTelegram{fail: map[string]string{
		"editMessageText": "Bad Request: message is not modified",
	}}
	c, _ := newTelegramFixture(t, fake, nil)

	err := c.Send(context.Background(), &bus.OutboundMessage{
		ChatID:        "900",
		Text:          "same screen",
		EditMessageID: "77",
	})
	if err != nil {
		t.Fatalf("no-op edit must not error: %v", err)
	}
}

func TestAuthorized(t *testing.T) {
	if Authorized(nil, "42") {
		t.Fatal("empty allow list must deny")
	}
	if !Authorized([]string{"42", "43"}, "42") {
		t.Fatal("listed sender denied")
	}
	if Authorized([]string{"42"}, "99") {
		t.Fatal("unlisted sender allowed")
	}
}
