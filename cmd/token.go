package main

import (
	"fmt"
	"strings"

	"github.com/blindrelay/go-blindrelay-server/client"
	"github.com/blindrelay/go-blindrelay-server/crypto"
	"github.com/spf13/cobra"
)

var tokenPublicKey string
var tokenKeyFile string

func init() {
	tokenCmd.Flags().StringVarP(&tokenPublicKey, "publicKey", "p", "", "public key (hex)")
	tokenCmd.Flags().StringVarP(&tokenKeyFile, "keyFile", "f", "", "file with a stored public key")
	rootCmd.AddCommand(tokenCmd)
}

// tokenCmd derives the routing token a relay files envelopes under for the
// given public key
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Derive the routing token for a public key",
	Long:  "Derive the routing token for a public key. Any party holding the key computes the same token; the relay cannot reverse it.",
	PreRun: func(cmd *cobra.Command, args []string) {
		pubKey, _ := cmd.Flags().GetString("publicKey")
		if pubKey == "" {
			cmd.MarkFlagRequired("keyFile")
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if tokenPublicKey == "" {
			imported, err := client.ImportPublicKey(tokenKeyFile)
			check(err)
			tokenPublicKey = imported
		}
		tokenPublicKey = strings.TrimSpace(tokenPublicKey)

		token, err := crypto.DeriveToken(tokenPublicKey)
		check(err)
		fmt.Printf("Routing token for %s...:\n\n%s\n", tokenPublicKey[:16], token)
	},
}
