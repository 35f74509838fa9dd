// Package cli provides the command-line interface for postrelay.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "postrelay",
	Short: "Relay VK and Telegram community posts into forum topics",
	Long: "postrelay watches configured VK communities and Telegram chats, filters and\n" +
		"classifies new posts, and forwards accepted ones into forum topics of a\n" +
		"destination Telegram supergroup, exactly once per source post.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("postrelay %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", ".", "directory containing config.yaml")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
