package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinycoin/tinycoin/logx"
)

type TransferConfig struct {
	NodeURL string
	APIKey  string
	From    string
	To      string
	Amount  string
	Verbose bool
}

var transferConfig TransferConfig

var transferCmd = &cobra.Command{
	Use:   "transfer [flags]",
	Short: "Transfer tokens to another account",
	Long: `Sends tokens from one registered account to another.

Examples:
  # Transfer 1000 tokens from alice to bob
  tinycoin transfer -f alice -t bob -a 1_000`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := transferTokens(transferConfig); err != nil {
			logx.Error("TRANSFER CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(transferCmd)

	transferCmd.Flags().StringVarP(&transferConfig.NodeURL, "node-url", "u", defaultNodeURL, "ledger node URL")
	transferCmd.Flags().StringVarP(&transferConfig.APIKey, "api-key", "k", "", "API key (defaults to TINYCOIN_API_KEY)")
	transferCmd.Flags().StringVarP(&transferConfig.From, "from", "f", "", "sender address")
	transferCmd.Flags().StringVarP(&transferConfig.To, "to", "t", "", "receiver address")
	transferCmd.Flags().StringVarP(&transferConfig.Amount, "amount", "a", "", "amount to transfer (decimal)")
	transferCmd.Flags().BoolVarP(&transferConfig.Verbose, "verbose", "v", false, "verbose output")
}

func transferTokens(cfg TransferConfig) error {
	amount, err := parseCLIAmount(cfg.Amount)
	if err != nil {
		return fmt.Errorf("could not parse amount %q: %w", cfg.Amount, err)
	}

	c := newLedgerClient(cfg.NodeURL, cfg.APIKey)
	ctx := context.Background()

	if cfg.Verbose {
		logx.Debug("TRANSFER CLI", fmt.Sprintf("Sending %s: %s -> %s via %s", cfg.Amount, cfg.From, cfg.To, cfg.NodeURL))
	}
	transfer, err := c.Send(ctx, cfg.From, cfg.To, amount)
	if err != nil {
		return err
	}
	logx.Info("TRANSFER CLI", fmt.Sprintf("Applied transfer %s: %s -> %s amount %s", transfer.Hash, transfer.Sender, transfer.Receiver, transfer.Amount))

	if cfg.Verbose {
		receiver, err := c.Balance(ctx, cfg.To)
		if err != nil {
			return fmt.Errorf("transfer applied, but could not read receiver balance: %w", err)
		}
		logx.Info("TRANSFER CLI", fmt.Sprintf("Receiver %s now holds %s", receiver.Address, receiver.Balance))
	}
	return nil
}
