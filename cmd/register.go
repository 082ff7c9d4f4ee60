package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/tinycoin/tinycoin/logx"
)

type RegisterConfig struct {
	NodeURL string
	APIKey  string
	Address string
	Balance string
}

var registerConfig RegisterConfig

var registerCmd = &cobra.Command{
	Use:   "register [flags]",
	Short: "Register a new account",
	Long: `Registers a new account on the node, optionally with an initial balance.

Examples:
  # Register alice with an empty balance
  tinycoin register -a alice

  # Register a faucet account holding 1_000_000
  tinycoin register -a faucet -b 1_000_000`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := registerAccount(registerConfig); err != nil {
			logx.Error("REGISTER CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringVarP(&registerConfig.NodeURL, "node-url", "u", defaultNodeURL, "ledger node URL")
	registerCmd.Flags().StringVarP(&registerConfig.APIKey, "api-key", "k", "", "API key (defaults to TINYCOIN_API_KEY)")
	registerCmd.Flags().StringVarP(&registerConfig.Address, "address", "a", "", "address to register")
	registerCmd.Flags().StringVarP(&registerConfig.Balance, "balance", "b", "", "initial balance (decimal, optional)")
}

func registerAccount(cfg RegisterConfig) error {
	var initialBalance *uint256.Int
	if cfg.Balance != "" {
		parsed, err := parseCLIAmount(cfg.Balance)
		if err != nil {
			return fmt.Errorf("could not parse balance %q: %w", cfg.Balance, err)
		}
		initialBalance = parsed
	}

	c := newLedgerClient(cfg.NodeURL, cfg.APIKey)
	account, err := c.Register(context.Background(), cfg.Address, initialBalance)
	if err != nil {
		return err
	}

	logx.Info("REGISTER CLI", fmt.Sprintf("Registered %s with balance %s", account.Address, account.Balance))
	return nil
}
