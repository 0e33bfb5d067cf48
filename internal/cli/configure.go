package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PanelPilot/PanelPilot/internal/config"
	"github.com/PanelPilot/PanelPilot/internal/secrets"
)

var (
	configurePanelURL string
	configureAPIKey   string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write panel settings and store the API key in the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader("🔧 PanelPilot Configure")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if configurePanelURL != "" {
			cfg.Panel.URL = configurePanelURL
		}
		if configureAPIKey != "" {
			if err := secrets.StoreAPIKey(configureAPIKey); err != nil {
				// Headless hosts often have no keyring; fall back to the file.
				fmt.Printf("Keyring unavailable (%v), storing key in the config file instead.\n", err)
				cfg.Panel.APIKey = configureAPIKey
			} else {
				cfg.Panel.APIKey = ""
				fmt.Println("API key stored in the system keyring.")
			}
		}

		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		path, _ := config.ConfigPath()
		fmt.Println("Config written to", path)
		fmt.Println("Enable a channel by editing the channels section, e.g. channels.telegram.enabled=true.")
		return nil
	},
}

func init() {
	configureCmd.Flags().StringVar(&configurePanelURL, "panel-url", "", "Panel base URL")
	configureCmd.Flags().StringVar(&configureAPIKey, "api-key", "", "Panel API key")
}
