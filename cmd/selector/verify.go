package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <message>",
	Short: "Ask the selected wallet for a signed ownership proof",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sel, _, err := buildSelector(ctx, cmd)
		if err != nil {
			fail("Error initializing selector: %v", err)
		}

		proof, err := sel.VerifyOwner(ctx, args[0])
		if err != nil {
			fail("Verification failed: %v", err)
		}

		encoded, err := json.MarshalIndent(proof, "", "  ")
		if err != nil {
			fail("Encoding proof failed: %v", err)
		}
		fmt.Println(string(encoded))
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
