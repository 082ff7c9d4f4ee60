package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinycoin/tinycoin/logx"
)

type MineConfig struct {
	NodeURL string
	APIKey  string
	Miner   string
}

var mineConfig MineConfig

var mineCmd = &cobra.Command{
	Use:   "mine [flags]",
	Short: "Mine a reward block",
	Long:  "Appends the next reward block and credits the fixed reward to the miner account.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := mineBlock(mineConfig); err != nil {
			logx.Error("MINE CLI", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)

	mineCmd.Flags().StringVarP(&mineConfig.NodeURL, "node-url", "u", defaultNodeURL, "ledger node URL")
	mineCmd.Flags().StringVarP(&mineConfig.APIKey, "api-key", "k", "", "API key (defaults to TINYCOIN_API_KEY)")
	mineCmd.Flags().StringVarP(&mineConfig.Miner, "miner", "m", "", "miner address receiving the reward")
}

func mineBlock(cfg MineConfig) error {
	c := newLedgerClient(cfg.NodeURL, cfg.APIKey)
	block, err := c.Mine(context.Background(), cfg.Miner)
	if err != nil {
		return err
	}
	logx.Info("MINE CLI", fmt.Sprintf("Mined block %d (%s) for %s, reward %s", block.Height, block.Hash, block.Miner, block.Reward))
	return nil
}
