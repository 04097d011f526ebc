package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func check(e error) {
	if e != nil {
		fmt.Printf("%v\n", e.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "blindrelay-cli",
	Short:   "Client for the blind relay end-to-end encrypted messaging service",
	Long:    `Client for the blind relay end-to-end encrypted messaging service. Keys never leave this machine; the relay only ever sees sealed envelopes and hashed routing tokens.`,
	Version: "0.1.0",
	Run: func(cmd *cobra.Command, args []string) {
		// empty
	},
}

func main() {
	Execute()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
