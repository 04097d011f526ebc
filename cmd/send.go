package main

import (
	"fmt"
	"time"

	"github.com/blindrelay/go-blindrelay-server/client"
	"github.com/spf13/cobra"
)

var (
	sendServer        string
	sendRecipient     string
	sendRecipientFile string
	sendMessage       string
	sendTTL           int64
)

func init() {
	sendCmd.Flags().StringVarP(&sendServer, "server", "s", "http://localhost:8000", "relay server URL")
	sendCmd.Flags().StringVarP(&sendRecipient, "recipient", "r", "", "recipient public key (hex)")
	sendCmd.Flags().StringVarP(&sendRecipientFile, "recipientFile", "f", "", "file with the recipient public key")
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "message text")
	sendCmd.Flags().Int64VarP(&sendTTL, "ttl", "t", 0, "envelope lifetime in seconds (0 uses the relay default)")
	sendCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(sendCmd)
}

// sendCmd seals a message for the recipient locally and hands the envelope
// to the relay. No identity is needed to send; the sender key is ephemeral.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Encrypt and send a message",
	Long:  "Encrypt a message for a recipient's public key and hand the sealed envelope to the relay",
	PreRun: func(cmd *cobra.Command, args []string) {
		recipient, _ := cmd.Flags().GetString("recipient")
		if recipient == "" {
			cmd.MarkFlagRequired("recipientFile")
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if sendRecipient == "" {
			imported, err := client.ImportPublicKey(sendRecipientFile)
			check(err)
			sendRecipient = imported
		}

		rc := client.NewRelayClient(sendServer, nil, false)
		var ttl *int64
		if sendTTL > 0 {
			ttl = &sendTTL
		}
		out, err := rc.Send(sendRecipient, sendMessage, ttl)
		check(err)

		fmt.Printf("Message sent\n")
		fmt.Printf("Message ID: %s\n", out.MessageID)
		fmt.Printf("Timestamp:  %s\n", time.Unix(int64(out.Timestamp), 0).Format(time.RFC3339))
	},
}
