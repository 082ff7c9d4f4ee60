package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the release build via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tinycoin version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tinycoin", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
