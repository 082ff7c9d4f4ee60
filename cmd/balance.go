package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinycoin/tinycoin/logx"
)

type BalanceConfig struct {
	NodeURL string
	APIKey  string
	Address string
}

var balanceConfig BalanceConfig

var balanceCmd = &cobra.Command{
	Use:   "balance [flags]",
	Short: "Show an account balance",
	Run: func(cmd *cobra.Command, args []string) {
		if err := showBalance(balanceConfig); err != nil {
			logx.Error("BALANCE CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().StringVarP(&balanceConfig.NodeURL, "node-url", "u", defaultNodeURL, "ledger node URL")
	balanceCmd.Flags().StringVarP(&balanceConfig.APIKey, "api-key", "k", "", "API key (defaults to TINYCOIN_API_KEY)")
	balanceCmd.Flags().StringVarP(&balanceConfig.Address, "address", "a", "", "account address")
}

func showBalance(cfg BalanceConfig) error {
	c := newLedgerClient(cfg.NodeURL, cfg.APIKey)
	balance, err := c.Balance(context.Background(), cfg.Address)
	if err != nil {
		return err
	}
	fmt.Printf("%s\tbalance=%s\tnonce=%d\n", balance.Address, balance.Balance, balance.Nonce)
	return nil
}
