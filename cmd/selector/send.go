package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nearwallets/selector/pkg/domain"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and send a transaction through the selected wallet",
	Long: `Send a transfer (--deposit) or a contract call (--method, optionally with
--args and --deposit) through the selected wallet. The receiver defaults to the
configured contract id and the signer to the first active account.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sel, _, err := buildSelector(ctx, cmd)
		if err != nil {
			fail("Error initializing selector: %v", err)
		}

		receiver, _ := cmd.Flags().GetString("receiver")
		signer, _ := cmd.Flags().GetString("signer")
		method, _ := cmd.Flags().GetString("method")
		callArgs, _ := cmd.Flags().GetString("args")
		depositStr, _ := cmd.Flags().GetString("deposit")
		gas, _ := cmd.Flags().GetUint64("gas")

		deposit := domain.Balance{}
		if depositStr != "" {
			deposit, err = domain.BalanceFromString(depositStr)
			if err != nil {
				fail("Invalid deposit: %v", err)
			}
		}

		var action domain.Action
		switch {
		case method != "":
			action = domain.NewFunctionCall(method, []byte(callArgs), gas, deposit)
		case depositStr != "":
			action = domain.NewTransfer(deposit)
		default:
			fail("Nothing to send: pass --method or --deposit")
		}

		outcome, err := sel.SignAndSendTransaction(ctx, domain.Transaction{
			SignerID:   signer,
			ReceiverID: receiver,
			Actions:    []domain.Action{action},
		})
		if err != nil {
			fail("Send failed: %v", err)
		}

		if outcome.Status.Failed() {
			fail("Transaction %s failed: %v", outcome.TransactionHash, outcome.Status.Failure)
		}
		fmt.Printf("Transaction %s finalized\n", outcome.TransactionHash)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("receiver", "", "Receiver account id (defaults to the configured contract)")
	sendCmd.Flags().String("signer", "", "Signer account id (defaults to the first active account)")
	sendCmd.Flags().String("method", "", "Contract method to call")
	sendCmd.Flags().String("args", "{}", "JSON arguments for the contract call")
	sendCmd.Flags().String("deposit", "", "Attached deposit in yoctoNEAR")
	sendCmd.Flags().Uint64("gas", 0, "Gas budget for the call (0 uses the default)")
}
