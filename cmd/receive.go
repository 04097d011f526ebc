package main

import (
	"fmt"
	"os"
	"time"

	"github.com/blindrelay/go-blindrelay-server/client"
	"github.com/spf13/cobra"
)

var (
	receiveServer   string
	receiveDir      string
	receiveConsume  bool
	receiveListen   bool
	receiveInterval int
)

func init() {
	receiveCmd.Flags().StringVarP(&receiveServer, "server", "s", "http://localhost:8000", "relay server URL")
	receiveCmd.Flags().StringVarP(&receiveDir, "dir", "d", "keys", "directory holding keys.json")
	receiveCmd.Flags().BoolVarP(&receiveConsume, "consume", "c", false, "remove messages from the relay after reading")
	receiveCmd.Flags().BoolVarP(&receiveListen, "listen", "l", false, "keep polling for new messages")
	receiveCmd.Flags().IntVarP(&receiveInterval, "interval", "i", 10, "seconds between polls when listening")
	rootCmd.AddCommand(receiveCmd)
}

// receiveCmd fetches this identity's mailbox and decrypts every envelope
// locally
var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Fetch and decrypt messages",
	Long:  "Fetch this identity's mailbox from the relay and decrypt every envelope locally",
	Run: func(cmd *cobra.Command, args []string) {
		identity, err := client.LoadIdentity(receiveDir)
		if err != nil {
			fmt.Printf("No identity found in %s, generate one with the keys command\n", receiveDir)
			os.Exit(1)
		}
		rc := client.NewRelayClient(receiveServer, identity, false)

		if receiveListen {
			listen(rc)
			return
		}

		messages, err := fetchOnce(rc, nil)
		check(err)
		if len(messages) == 0 {
			fmt.Printf("No messages\n")
			return
		}
		printMessages(messages)
	},
}

func fetchOnce(rc *client.RelayClient, since *float64) ([]client.ReceivedMessage, error) {
	if receiveConsume {
		return rc.Consume(since)
	}
	return rc.Poll(since)
}

// listen polls on a fixed interval. Only envelopes received after the
// previous round are requested, like a tail follow on the mailbox.
func listen(rc *client.RelayClient) {
	fmt.Printf("Listening for messages every %d seconds, Ctrl+C to stop\n", receiveInterval)

	lastCheck := float64(time.Now().UnixNano()) / float64(time.Second)
	for {
		time.Sleep(time.Duration(receiveInterval) * time.Second)

		since := lastCheck
		lastCheck = float64(time.Now().UnixNano()) / float64(time.Second)
		messages, err := fetchOnce(rc, &since)
		if err != nil {
			fmt.Printf("Poll failed: %v\n", err)
			continue
		}
		if len(messages) > 0 {
			printMessages(messages)
		}
	}
}

func printMessages(messages []client.ReceivedMessage) {
	fmt.Printf("Received %d message(s):\n", len(messages))
	for _, msg := range messages {
		fmt.Printf("--------------------------------------------------\n")
		fmt.Printf("Message ID: %s\n", msg.MessageID)
		fmt.Printf("Content:    %s\n", msg.Plaintext)
		fmt.Printf("Received:   %s\n", time.Unix(int64(msg.Timestamp), 0).Format(time.RFC3339))
		fmt.Printf("Sender key: %s...\n", msg.SenderPublicKey[:16])
	}
}
