package main

import (
	"fmt"
	"os"

	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "bot",
		Short: "Birthday Notification Bot - sends WhatsApp/Telegram birthday reminders on schedule",
		Long: `bot reads the birthday roster, decides who is due a reminder today and sends it,
recording each send so that no one is notified twice for the same birthday.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newCheckCmd(),
		newQueueCmd(),
		newReportCmd(),
		newHealthCmd(),
		newMigrateCmd(),
		newImportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
