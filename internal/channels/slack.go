package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/PanelPilot/PanelPilot/internal/bus"
	"github.com/PanelPilot/PanelPilot/internal/config"
)

// SlackChannel serves the same menus over Slack: Socket Mode for inbound
// interactions, Block Kit action buttons for the keyboard layout. Button
// values carry the opaque callback token unchanged.
type SlackChannel struct {
	BaseChannel
	config config.SlackConfig
	api    *slack.Client
	sm     *socketmode.Client
}

// NewSlackChannel creates a Slack channel.
func NewSlackChannel(cfg config.SlackConfig, messageBus *bus.MessageBus) *SlackChannel {
	return &SlackChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
	}
}

func (c *SlackChannel) Name() string { return "slack" }

// Start subscribes for outbound messages and runs the Socket Mode loop.
func (c *SlackChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	if strings.TrimSpace(c.config.BotToken) == "" || strings.TrimSpace(c.config.AppToken) == "" {
		return fmt.Errorf("slack channel needs both botToken and appToken")
	}

	c.api = slack.New(c.config.BotToken, slack.OptionAppLevelToken(c.config.AppToken))
	c.sm = socketmode.New(c.api)

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) error {
		err := c.Send(ctx, msg)
		if err != nil {
			slog.Error("slack send failed", "chat_id", msg.ChatID, "error", err)
		}
		return err
	})

	go c.eventLoop(ctx)
	go func() {
		if err := c.sm.RunContext(ctx); err != nil && ctx.Err() == nil {
			slog.Error("slack socket mode stopped", "error", err)
		}
	}()
	return nil
}

func (c *SlackChannel) Stop() error { return nil }

func (c *SlackChannel) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.sm.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeInteractive:
				if evt.Request != nil {
					c.sm.Ack(*evt.Request)
				}
				if cb, ok := evt.Data.(slack.InteractionCallback); ok {
					c.handleInteraction(ctx, cb)
				}
			case socketmode.EventTypeSlashCommand:
				if evt.Request != nil {
					c.sm.Ack(*evt.Request)
				}
				if cmd, ok := evt.Data.(slack.SlashCommand); ok {
					c.handleSlashCommand(ctx, cmd)
				}
			}
		}
	}
}

func (c *SlackChannel) handleInteraction(ctx context.Context, cb slack.InteractionCallback) {
	channelID := strings.TrimSpace(cb.Channel.ID)
	if channelID == "" {
		channelID = strings.TrimSpace(cb.Container.ChannelID)
	}

	token := ""
	if len(cb.ActionCallback.BlockActions) > 0 {
		token = strings.TrimSpace(cb.ActionCallback.BlockActions[0].Value)
	}
	if token == "" {
		return
	}

	if !Authorized(c.config.AllowFrom, cb.User.ID) {
		c.postText(ctx, channelID, NotAuthorizedNotice)
		return
	}

	c.Bus.PublishInbound(&bus.InboundEvent{
		Channel:   c.Name(),
		ChatID:    channelID,
		SenderID:  cb.User.ID,
		MessageID: strings.TrimSpace(cb.Container.MessageTs),
		Data:      token,
		TraceID:   uuid.NewString(),
	})
}

// handleSlashCommand maps the /panel command onto the main menu.
func (c *SlackChannel) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	if !Authorized(c.config.AllowFrom, cmd.UserID) {
		c.postText(ctx, cmd.ChannelID, NotAuthorizedNotice)
		return
	}
	c.Bus.PublishInbound(&bus.InboundEvent{
		Channel:  c.Name(),
		ChatID:   cmd.ChannelID,
		SenderID: cmd.UserID,
		Data:     "start",
		TraceID:  uuid.NewString(),
	})
}

// Send posts or updates a message with the screen's blocks.
func (c *SlackChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if blocks := buildBlocks(msg.Text, msg.Keyboard); len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}

	var err error
	if ts := strings.TrimSpace(msg.EditMessageID); ts != "" {
		_, _, _, err = c.api.UpdateMessageContext(ctx, msg.ChatID, ts, opts...)
	} else {
		_, _, err = c.api.PostMessageContext(ctx, msg.ChatID, opts...)
	}
	return err
}

func buildBlocks(text string, keyboard [][]bus.Button) []slack.Block {
	if len(keyboard) == 0 {
		return nil
	}
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
	}
	for i, row := range keyboard {
		elements := make([]slack.BlockElement, 0, len(row))
		for j, b := range row {
			elements = append(elements, slack.NewButtonBlockElement(
				fmt.Sprintf("btn_%d_%d", i, j),
				b.Data,
				slack.NewTextBlockObject(slack.PlainTextType, b.Label, true, false),
			))
		}
		blocks = append(blocks, slack.NewActionBlock(fmt.Sprintf("row_%d", i), elements...))
	}
	return blocks
}

func (c *SlackChannel) postText(ctx context.Context, channelID, text string) {
	if _, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		slog.Warn("slack post failed", "chat_id", channelID, "error", err)
	}
}
