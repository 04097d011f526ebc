package main

import (
	"fmt"

	"github.com/blindrelay/go-blindrelay-server/client"
	"github.com/spf13/cobra"
)

var statusServer string

func init() {
	statusCmd.Flags().StringVarP(&statusServer, "server", "s", "http://localhost:8000", "relay server URL")
	rootCmd.AddCommand(statusCmd)
}

// statusCmd prints the relay's public statistics
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show relay statistics",
	Run: func(cmd *cobra.Command, args []string) {
		rc := client.NewRelayClient(statusServer, nil, false)
		status, err := rc.Status()
		check(err)

		fmt.Printf("Status:            %s\n", status.Status)
		fmt.Printf("Version:           %s\n", status.Version)
		fmt.Printf("Uptime:            %.0fs\n", status.UptimeSeconds)
		fmt.Printf("Stored messages:   %d\n", status.TotalMessages)
		fmt.Printf("Active mailboxes:  %d\n", status.ActiveTokens)
		fmt.Printf("Auto cleanup:      %t\n", status.AutoCleanupEnabled)
		fmt.Printf("Default TTL:       %dm\n", status.DefaultTTLMinutes)
		fmt.Printf("Blocked addresses: %d\n", status.SecurityStats.BlockedAddresses)
	},
}
