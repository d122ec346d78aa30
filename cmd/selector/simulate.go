package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/adapters/bridge"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a wallet daemon simulator",
	Long: `Starts an in-process wallet daemon with a generated ed25519 key, speaking
the bridge protocol over HTTP. Point a "wallets" entry of the config at it to
exercise the full sign-in and signing flow without a real wallet.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail("Error loading config: %v", err)
		}

		port, _ := cmd.Flags().GetString("port")
		account, _ := cmd.Flags().GetString("account")
		nonce, _ := cmd.Flags().GetUint64("nonce")
		level, _ := cmd.Flags().GetString("log-level")

		sim, err := bridge.NewSimulator(account, cfg.Network,
			bridge.WithBaseNonce(nonce),
			bridge.WithSimulatorLogger(logging.New(logging.ParseLevel(level))),
		)
		if err != nil {
			fail("Error creating simulator: %v", err)
		}

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: sim.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Wallet simulator listening on %s\n", srv.Addr)
			fmt.Printf("Account: %s\n", sim.AccountID())
			fmt.Printf("Key:     %s\n", sim.PublicKey())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fail("Server error: %v", err)

		case sig := <-shutdown:
			fmt.Printf("\nShutting down... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
			}
			fmt.Println("Wallet simulator stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringP("port", "p", "16180", "Port to listen on")
	simulateCmd.Flags().String("account", "alice.testnet", "Account the simulator controls")
	simulateCmd.Flags().Uint64("nonce", 0, "Starting access key nonce")
}
