package cmd

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/tinycoin/tinycoin/logx"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Generate a random API key",
	Long: `Generates a 24-byte random key encoded in base58.

Put the key under self_node.api_key in the node config, or export it as
TINYCOIN_API_KEY for both the node and the client commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := generateAPIKey()
		if err != nil {
			logx.Error("APIKEY CLI", "Failed to generate key:", err)
			os.Exit(1)
		}
		fmt.Println(key)
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
}

func generateAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base58.Encode(raw), nil
}
