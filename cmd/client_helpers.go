package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/client"
	"github.com/tinycoin/tinycoin/config"
	"github.com/tinycoin/tinycoin/utils"
)

const defaultNodeURL = "http://localhost:8080"

// newLedgerClient builds the HTTP client the thin CLI commands share.
// An empty api key flag falls back to the env var the node itself
// reads, so one exported TINYCOIN_API_KEY serves both sides.
func newLedgerClient(nodeURL, apiKey string) *client.Client {
	if apiKey == "" {
		apiKey = os.Getenv(config.EnvAPIKey)
	}
	return client.NewClient(client.Config{
		BaseURL: nodeURL,
		APIKey:  apiKey,
		Timeout: 15 * time.Second,
	})
}

// parseCLIAmount parses a flag amount, allowing underscores as digit
// separators ("1_000").
func parseCLIAmount(s string) (*uint256.Int, error) {
	return utils.ParseAmount(strings.ReplaceAll(s, "_", ""))
}
