package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PanelPilot/PanelPilot/internal/bus"
	"github.com/PanelPilot/PanelPilot/internal/channels"
	"github.com/PanelPilot/PanelPilot/internal/config"
	"github.com/PanelPilot/PanelPilot/internal/dispatch"
	"github.com/PanelPilot/PanelPilot/internal/journal"
	"github.com/PanelPilot/PanelPilot/internal/panel"
	"github.com/PanelPilot/PanelPilot/internal/secrets"
	"github.com/PanelPilot/PanelPilot/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot and serve the configured chat channels",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	printHeader("🚀 PanelPilot")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Panel.URL == "" {
		return fmt.Errorf("panel.url is not configured (run 'panelpilot configure' first)")
	}
	apiKey, err := secrets.ResolveAPIKey(cfg.Panel.APIKey)
	if err != nil {
		return fmt.Errorf("resolve panel API key: %w", err)
	}
	if !cfg.Channels.Telegram.Enabled && !cfg.Channels.Slack.Enabled {
		return fmt.Errorf("no chat channel enabled")
	}

	journalPath, err := cfg.JournalPath()
	if err != nil {
		return err
	}
	jrnl, err := journal.NewService(journalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	msgBus := bus.NewMessageBus()
	client := panel.NewClient(cfg.Panel.URL, apiKey)

	dispatcher := dispatch.New(dispatch.Options{
		Bus:           msgBus,
		Panel:         client,
		Sessions:      session.NewStore(),
		Journal:       jrnl,
		ConfirmWindow: time.Duration(cfg.Dispatch.ConfirmWindowSeconds) * time.Second,
		PollInterval:  time.Duration(cfg.Poller.IntervalSeconds) * time.Second,
		PollAttempts:  cfg.Poller.MaxAttempts,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go msgBus.DispatchOutbound(ctx)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("dispatcher stopped", "error", err)
		}
	}()

	tg := channels.NewTelegramChannel(cfg.Channels.Telegram, msgBus)
	if err := tg.Start(ctx); err != nil {
		fmt.Printf("Failed to start Telegram: %v\n", err)
	} else if cfg.Channels.Telegram.Enabled {
		fmt.Println("Telegram: ✓ Listening")
	}

	sl := channels.NewSlackChannel(cfg.Channels.Slack, msgBus)
	if err := sl.Start(ctx); err != nil {
		fmt.Printf("Failed to start Slack: %v\n", err)
	} else if cfg.Channels.Slack.Enabled {
		fmt.Println("Slack: ✓ Listening")
	}

	fmt.Println("PanelPilot is up. Press Ctrl+C to stop.")
	<-sigChan
	fmt.Println("\nShutting down…")
	cancel()

	_ = tg.Stop()
	_ = sl.Stop()
	return nil
}
