package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tinycoin/tinycoin/logx"
)

var rootCmd = &cobra.Command{
	Use:   "tinycoin",
	Short: "tinycoin ledger node CLI",
	Long:  "Command line interface for running and talking to a tinycoin ledger node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
