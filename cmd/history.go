package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinycoin/tinycoin/logx"
)

type HistoryConfig struct {
	NodeURL string
	APIKey  string
	Address string
	Filter  string
	Limit   int
	Offset  int
}

var historyConfig HistoryConfig

var historyCmd = &cobra.Command{
	Use:   "history [flags]",
	Short: "List transfers an account took part in",
	Long: `Lists the transfers an account sent or received, oldest first.

Examples:
  # Everything alice was involved in
  tinycoin history -a alice

  # Only what alice sent, newest page of 10
  tinycoin history -a alice --filter sender --limit 10`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showHistory(historyConfig); err != nil {
			logx.Error("HISTORY CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyConfig.NodeURL, "node-url", "u", defaultNodeURL, "ledger node URL")
	historyCmd.Flags().StringVarP(&historyConfig.APIKey, "api-key", "k", "", "API key (defaults to TINYCOIN_API_KEY)")
	historyCmd.Flags().StringVarP(&historyConfig.Address, "address", "a", "", "account address")
	historyCmd.Flags().StringVar(&historyConfig.Filter, "filter", "", "all, sender or receiver")
	historyCmd.Flags().IntVar(&historyConfig.Limit, "limit", 0, "max transfers to list (0 = all)")
	historyCmd.Flags().IntVar(&historyConfig.Offset, "offset", 0, "transfers to skip from the start")
}

func showHistory(cfg HistoryConfig) error {
	c := newLedgerClient(cfg.NodeURL, cfg.APIKey)
	history, err := c.History(context.Background(), cfg.Address, cfg.Filter, cfg.Limit, cfg.Offset)
	if err != nil {
		return err
	}
	if history.Count == 0 {
		fmt.Printf("no transfers for %s\n", cfg.Address)
		return nil
	}
	for _, tr := range history.Transfers {
		fmt.Printf("%s\t%s -> %s\tamount=%s\tnonce=%d\tts=%d\n",
			tr.Hash, tr.Sender, tr.Receiver, tr.Amount, tr.Nonce, tr.Timestamp)
	}
	return nil
}
