package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blindrelay/go-blindrelay-server/client"
	"github.com/spf13/cobra"
)

var keysDir string

func init() {
	keysCmd.Flags().StringVarP(&keysDir, "dir", "d", "keys", "directory for the generated key files")
	rootCmd.AddCommand(keysCmd)
}

// keysCmd generates a new Curve25519 identity and stores it on disk together
// with the routing token correspondents need to reach this client
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate a new identity",
	Long:  "Generate a Curve25519 keypair, derive its routing token and store everything under the keys directory",
	Run: func(cmd *cobra.Command, args []string) {
		// refuse to overwrite an existing identity
		if _, err := os.Stat(filepath.Join(keysDir, "keys.json")); !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Identity already exists in: %s\n", keysDir)
			os.Exit(1)
		}

		identity, err := client.NewIdentity()
		check(err)
		check(identity.Save(keysDir))
		exportPath, err := identity.ExportPublicKey(keysDir)
		check(err)

		fmt.Printf("Public key:    %s\n", identity.PublicKey)
		fmt.Printf("Routing token: %s\n", identity.Token)
		fmt.Printf("Keys saved to: %s\n", filepath.Join(keysDir, "keys.json"))
		fmt.Printf("Shareable key: %s\n", exportPath)
	},
}
