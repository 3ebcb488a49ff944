package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "retroshelf",
	Short: "Retro console collection tracker",
	Long:  "Tracks a personal collection of game consoles and accessories and schedules their maintenance reminders.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(upcomingCmd)
	rootCmd.AddCommand(importCmd)
}
