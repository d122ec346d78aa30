package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nearwallets/selector/pkg/ports"
)

var signInCmd = &cobra.Command{
	Use:   "sign-in <wallet-id>",
	Short: "Sign in against a configured wallet and select it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sel, _, err := buildSelector(ctx, cmd)
		if err != nil {
			fail("Error initializing selector: %v", err)
		}

		accounts, err := sel.SignIn(ctx, args[0], ports.SignInParams{})
		if err != nil {
			fail("Sign-in failed: %v", err)
		}
		for _, a := range accounts {
			fmt.Printf("Signed in as %s (%s)\n", a.AccountID, a.PublicKey)
		}
	},
}

var signOutCmd = &cobra.Command{
	Use:   "sign-out",
	Short: "Sign out of the selected wallet",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sel, _, err := buildSelector(ctx, cmd)
		if err != nil {
			fail("Error initializing selector: %v", err)
		}
		if err := sel.SignOut(ctx); err != nil {
			fail("Sign-out failed: %v", err)
		}
		fmt.Println("Signed out.")
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the active accounts",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sel, _, err := buildSelector(ctx, cmd)
		if err != nil {
			fail("Error initializing selector: %v", err)
		}

		accounts := sel.Accounts()
		if len(accounts) == 0 {
			fmt.Println("Not signed in.")
			return
		}
		for _, a := range accounts {
			fmt.Printf("%s\t%s\n", a.AccountID, a.PublicKey)
		}
	},
}

func init() {
	rootCmd.AddCommand(signInCmd)
	rootCmd.AddCommand(signOutCmd)
	rootCmd.AddCommand(accountsCmd)
}
