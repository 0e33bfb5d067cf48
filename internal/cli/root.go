// Package cli implements the panelpilot command surface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/PanelPilot/PanelPilot/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  ____                  _ ____  _ _       _\n" +
		" |  _ \\ __ _ _ __   ___| |  _ \\(_) | ___ | |_\n" +
		" | |_) / _` | '_ \\ / _ \\ | |_) | | |/ _ \\| __|\n" +
		" |  __/ (_| | | | |  __/ |  __/| | | (_) | |_\n" +
		" |_|   \\__,_|_| |_|\\___|_|_|   |_|_|\\___/ \\__|\n"
)

var rootCmd = &cobra.Command{
	Use:   "panelpilot",
	Short: "PanelPilot - chat remote control for your cloud panel",
	Long:  color.CyanString(logo) + "\nBrowse accounts, drive instances and launch snatch jobs from chat.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(configureCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
