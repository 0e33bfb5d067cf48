package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/PanelPilot/PanelPilot/internal/config"
	"github.com/PanelPilot/PanelPilot/internal/journal"
	"github.com/PanelPilot/PanelPilot/internal/secrets"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ PanelPilot Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and channel status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 PanelPilot Status")
		fmt.Printf("Version: %s\n", version)

		configPath, _ := config.ConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			fmt.Println("Config:  ✓ Found (" + configPath + ")")
		} else {
			fmt.Println("Config:  ✗ Not found (run 'panelpilot configure' first)")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:  ? Unable to load:", err)
			return
		}
		if cfg.Panel.URL != "" {
			fmt.Println("Panel:   ✓", cfg.Panel.URL)
		} else {
			fmt.Println("Panel:   ✗ URL not set")
		}
		if _, err := secrets.ResolveAPIKey(cfg.Panel.APIKey); err == nil {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found")
		}
		printChannelStatus("Telegram", cfg.Channels.Telegram.Enabled, len(cfg.Channels.Telegram.AllowFrom))
		printChannelStatus("Slack", cfg.Channels.Slack.Enabled, len(cfg.Channels.Slack.AllowFrom))
	},
}

func printChannelStatus(name string, enabled bool, allowed int) {
	if !enabled {
		fmt.Printf("%s: ✗ Disabled\n", name)
		return
	}
	if allowed == 0 {
		fmt.Printf("%s: ⚠ Enabled, but the allow-list is empty (nobody can use it)\n", name)
		return
	}
	fmt.Printf("%s: ✓ Enabled (%d operator(s))\n", name, allowed)
}

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recently submitted jobs from the local journal",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📝 Recent Jobs")

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Unable to load config:", err)
			return
		}
		path, err := cfg.JournalPath()
		if err != nil {
			fmt.Println("Unable to resolve journal path:", err)
			return
		}
		jrnl, err := journal.NewService(path)
		if err != nil {
			fmt.Println("Unable to open journal:", err)
			return
		}
		defer jrnl.Close()

		jobs, err := jrnl.Recent(jobsLimit)
		if err != nil {
			fmt.Println("Unable to list jobs:", err)
			return
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs recorded yet.")
			return
		}
		for _, job := range jobs {
			fmt.Printf("%s  %s  %s/%s  %s\n",
				job.CreatedAt.Format("2006-01-02 15:04"),
				colorStatus(job.Status),
				job.Account, job.Kind, job.Name,
			)
		}
	},
}

func colorStatus(status string) string {
	switch status {
	case journal.StatusSuccess:
		return color.GreenString("%-7s", status)
	case journal.StatusFailure, journal.StatusTimeout:
		return color.RedString("%-7s", status)
	default:
		return color.YellowString("%-7s", status)
	}
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "Number of jobs to show")
}
