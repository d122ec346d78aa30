package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	selector "github.com/nearwallets/selector"
	"github.com/nearwallets/selector/internal/logging"
	"github.com/nearwallets/selector/pkg/adapters/bridge"
	redisstore "github.com/nearwallets/selector/pkg/adapters/redis"
	"github.com/nearwallets/selector/pkg/ports"
	"github.com/nearwallets/selector/pkg/wallet/injected"
)

var rootCmd = &cobra.Command{
	Use:   "selector",
	Short: "Selector connects NEAR applications to external wallets",
	Long: `Selector manages wallet selection and transaction signing for NEAR
applications: sign in against a wallet daemon, inspect accounts, and send
transactions through the selected wallet.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "selector.yaml", "Path to the selector config file")
	rootCmd.PersistentFlags().String("network", "", "Network id (overrides config)")
	rootCmd.PersistentFlags().String("contract", "", "Default receiver contract id (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
}

// fileConfig is the YAML shape of the selector config file.
type fileConfig struct {
	Network    string `yaml:"network"`
	ContractID string `yaml:"contractId"`

	// Redis enables durable session storage; without it sessions live only for
	// one invocation.
	Redis string `yaml:"redis"`

	Wallets []walletConfig `yaml:"wallets"`
}

type walletConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

func loadConfig(cmd *cobra.Command) (fileConfig, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg fileConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !cmd.Flags().Changed("config"):
		// No config file is fine when everything comes from flags.
	default:
		return cfg, err
	}

	if network, _ := cmd.Flags().GetString("network"); network != "" {
		cfg.Network = network
	}
	if contract, _ := cmd.Flags().GetString("contract"); contract != "" {
		cfg.ContractID = contract
	}
	if cfg.Network == "" {
		cfg.Network = "testnet"
	}
	return cfg, nil
}

// buildSelector assembles and initializes a Selector from the CLI config.
func buildSelector(ctx context.Context, cmd *cobra.Command) (*selector.Selector, fileConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger := logging.New(logging.ParseLevel(level))

	modules := make([]ports.ModuleFactory, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		modules = append(modules, walletModule(w))
	}

	opts := []selector.Option{selector.WithLogger(logger)}
	if cfg.Redis != "" {
		opts = append(opts, selector.WithStorage(redisstore.New(cfg.Redis)))
	}

	sel, err := selector.New(selector.Config{
		Network:    cfg.Network,
		ContractID: cfg.ContractID,
		Modules:    modules,
	}, opts...)
	if err != nil {
		return nil, cfg, err
	}
	if err := sel.Init(ctx); err != nil {
		return nil, cfg, err
	}
	return sel, cfg, nil
}

// walletModule builds a bridge module for one configured wallet daemon.
func walletModule(cfg walletConfig) ports.ModuleFactory {
	return bridge.SetupModule(cfg.URL, injected.Params{ID: cfg.ID, Name: cfg.Name})
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
