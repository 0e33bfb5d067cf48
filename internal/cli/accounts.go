package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/PanelPilot/PanelPilot/internal/config"
	"github.com/PanelPilot/PanelPilot/internal/menu"
	"github.com/PanelPilot/PanelPilot/internal/panel"
	"github.com/PanelPilot/PanelPilot/internal/secrets"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List panel accounts and their instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader("☁️ Panel Accounts")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		apiKey, err := secrets.ResolveAPIKey(cfg.Panel.APIKey)
		if err != nil {
			return err
		}
		client := panel.NewClient(cfg.Panel.URL, apiKey)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		accounts, err := client.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		menu.SortAccounts(accounts)

		for _, account := range accounts {
			fmt.Println(color.CyanString(account))
			instances, err := client.ListInstances(ctx, account)
			if err != nil {
				fmt.Printf("  (instance list failed: %v)\n", err)
				continue
			}
			if len(instances) == 0 {
				fmt.Println("  (no instances)")
				continue
			}
			for _, inst := range instances {
				fmt.Printf("  %-30s %s\n", inst.DisplayName, inst.LifecycleState)
			}
		}
		return nil
	},
}
