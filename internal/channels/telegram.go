// Package channels contains the chat surface adapters. Adapters translate
// between platform events and bus messages; they never interpret callback
// tokens, only round-trip them.
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PanelPilot/PanelPilot/internal/bus"
	"github.com/PanelPilot/PanelPilot/internal/config"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// longPollTimeout is the getUpdates hold time in seconds.
const longPollTimeout = 30

// TelegramChannel drives the Telegram Bot API directly over HTTP:
// getUpdates long-polling inbound, sendMessage/editMessageText outbound,
// inline keyboards for the button layout.
type TelegramChannel struct {
	BaseChannel
	config config.TelegramConfig
	base   string
	http   *http.Client
}

// NewTelegramChannel creates a Telegram channel.
func NewTelegramChannel(cfg config.TelegramConfig, messageBus *bus.MessageBus) *TelegramChannel {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultTelegramAPIBase
	}
	return &TelegramChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		base:        apiBase + "/bot" + cfg.Token,
		// Must exceed the long-poll hold time.
		http: &http.Client{Timeout: (longPollTimeout + 10) * time.Second},
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

// Start subscribes for outbound messages and begins long-polling.
func (c *TelegramChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) error {
		err := c.Send(ctx, msg)
		if err != nil {
			slog.Error("telegram send failed", "chat_id", msg.ChatID, "error", err)
		}
		return err
	})
	go c.poll(ctx)
	return nil
}

func (c *TelegramChannel) Stop() error { return nil }

// --- wire types ---

type tgUpdate struct {
	UpdateID int64       `json:"update_id"`
	Message  *tgMessage  `json:"message"`
	Callback *tgCallback `json:"callback_query"`
}

type tgMessage struct {
	MessageID int64  `json:"message_id"`
	From      tgUser `json:"from"`
	Chat      tgChat `json:"chat"`
	Text      string `json:"text"`
}

type tgUser struct {
	ID int64 `json:"id"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgCallback struct {
	ID      string     `json:"id"`
	From    tgUser     `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

type tgButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type tgResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// --- inbound ---

func (c *TelegramChannel) poll(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := c.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("telegram getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			c.handleUpdate(ctx, u)
		}
	}
}

func (c *TelegramChannel) getUpdates(ctx context.Context, offset int64) ([]tgUpdate, error) {
	resp, err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         longPollTimeout,
		"allowed_updates": []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, err
	}
	var updates []tgUpdate
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

func (c *TelegramChannel) handleUpdate(ctx context.Context, u tgUpdate) {
	switch {
	case u.Callback != nil:
		cb := u.Callback
		sender := strconv.FormatInt(cb.From.ID, 10)
		if !Authorized(c.config.AllowFrom, sender) {
			c.answerCallback(ctx, cb.ID, NotAuthorizedNotice, true)
			return
		}
		// Ack immediately so the client stops its spinner.
		c.answerCallback(ctx, cb.ID, "", false)

		ev := &bus.InboundEvent{
			Channel:  c.Name(),
			SenderID: sender,
			Data:     cb.Data,
			TraceID:  uuid.NewString(),
		}
		if cb.Message != nil {
			ev.ChatID = strconv.FormatInt(cb.Message.Chat.ID, 10)
			ev.MessageID = strconv.FormatInt(cb.Message.MessageID, 10)
		}
		c.Bus.PublishInbound(ev)

	case u.Message != nil && strings.HasPrefix(strings.TrimSpace(u.Message.Text), "/start"):
		sender := strconv.FormatInt(u.Message.From.ID, 10)
		chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
		if !Authorized(c.config.AllowFrom, sender) {
			c.sendText(ctx, chatID, NotAuthorizedNotice)
			return
		}
		c.Bus.PublishInbound(&bus.InboundEvent{
			Channel:  c.Name(),
			ChatID:   chatID,
			SenderID: sender,
			Data:     "start",
			TraceID:  uuid.NewString(),
		})
	}
}

// --- outbound ---

// Send renders the message. With EditMessageID set the existing message is
// replaced in place; a Telegram "message is not modified" response is
// swallowed, since a no-op re-render is a legal transition.
func (c *TelegramChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	payload := map[string]any{
		"chat_id":    msg.ChatID,
		"text":       msg.Text,
		"parse_mode": "Markdown",
	}
	if kb := keyboardPayload(msg.Keyboard); kb != nil {
		payload["reply_markup"] = kb
	}

	method := "sendMessage"
	if msg.EditMessageID != "" {
		method = "editMessageText"
		payload["message_id"] = msg.EditMessageID
	}

	_, err := c.call(ctx, method, payload)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func keyboardPayload(keyboard [][]bus.Button) map[string]any {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]tgButton, 0, len(keyboard))
	for _, row := range keyboard {
		line := make([]tgButton, 0, len(row))
		for _, b := range row {
			line = append(line, tgButton{Text: b.Label, CallbackData: b.Data})
		}
		rows = append(rows, line)
	}
	return map[string]any{"inline_keyboard": rows}
}

func (c *TelegramChannel) sendText(ctx context.Context, chatID, text string) {
	if _, err := c.call(ctx, "sendMessage", map[string]any{"chat_id": chatID, "text": text}); err != nil {
		slog.Warn("telegram sendMessage failed", "chat_id", chatID, "error", err)
	}
}

func (c *TelegramChannel) answerCallback(ctx context.Context, callbackID, text string, alert bool) {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
		payload["show_alert"] = alert
	}
	if _, err := c.call(ctx, "answerCallbackQuery", payload); err != nil {
		slog.Warn("telegram answerCallbackQuery failed", "error", err)
	}
}

func (c *TelegramChannel) call(ctx context.Context, method string, payload any) (*tgResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed tgResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("telegram %s: status %d, unparseable body", method, resp.StatusCode)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram %s: %s", method, parsed.Description)
	}
	return &parsed, nil
}
