package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/tinycoin/tinycoin/api"
	"github.com/tinycoin/tinycoin/config"
	"github.com/tinycoin/tinycoin/db"
	"github.com/tinycoin/tinycoin/errors"
	"github.com/tinycoin/tinycoin/events"
	"github.com/tinycoin/tinycoin/exception"
	"github.com/tinycoin/tinycoin/jsonrpc"
	"github.com/tinycoin/tinycoin/ledger"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/monitoring"
	"github.com/tinycoin/tinycoin/store"
)

var (
	nodeConfigPath string
	nodeTuningPath string
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the ledger node",
	Run: func(cmd *cobra.Command, args []string) {
		runNode(nodeConfigPath, nodeTuningPath)
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.Flags().StringVarP(&nodeConfigPath, "config", "c", "config/config.yml", "ledger config file")
	nodeCmd.Flags().StringVar(&nodeTuningPath, "tuning", "config/config.ini", "HTTP, rate limit and log tuning file")
}

func runNode(configPath, tuningPath string) {
	initLogging(tuningPath)

	cfg, err := config.LoadLedgerConfig(configPath)
	if err != nil {
		logx.Error("NODE", "Failed to load config:", err)
		os.Exit(1)
	}
	httpCfg, limitCfg := loadTuning(tuningPath)

	accountStore, transferStore, blockStore, provider, err := store.CreateStore(&store.StoreConfig{
		Type:      store.StoreType(cfg.Store.Backend),
		Directory: cfg.Store.Directory,
		Addr:      cfg.Store.Addr,
		Password:  cfg.Store.Password,
		DSN:       cfg.Store.DSN,
	})
	if err != nil {
		logx.Error("NODE", "Failed to open store:", err)
		os.Exit(1)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logx.Error("NODE", "Failed to close store:", err)
		}
	}()

	eventBus := events.NewEventBus()
	lgr := ledger.NewLedger(accountStore, transferStore, blockStore,
		db.NewDBTxManager(provider), eventBus, uint256.NewInt(cfg.Mining.Reward))

	if err := lgr.CreateAccountsFromGenesis(cfg.Genesis); err != nil {
		logx.Error("NODE", "Genesis bootstrap failed:", err)
		os.Exit(1)
	}

	// gauges are seeded from stored state before the consumer subscribes,
	// so genesis accounts are never counted twice
	seedMetrics(lgr)
	startEventConsumer(eventBus)

	apiSrv := api.NewAPIServer(lgr, cfg.SelfNode.APIKey, limitCfg, httpCfg)
	if err := apiSrv.Start(cfg.SelfNode.ListenAddr); err != nil {
		logx.Error("NODE", "Failed to start API server:", err)
		os.Exit(1)
	}
	rpcSrv := jsonrpc.NewServer(cfg.SelfNode.JSONRPCAddr, lgr, cfg.SelfNode.APIKey)
	if err := rpcSrv.Start(); err != nil {
		logx.Error("NODE", "Failed to start JSON-RPC server:", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logx.Info("NODE", "Received ", sig, ", shutting down")

	shutdownTimeout := 10 * time.Second
	if httpCfg != nil && httpCfg.ShutdownSec > 0 {
		shutdownTimeout = time.Duration(httpCfg.ShutdownSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiSrv.Shutdown(ctx); err != nil {
		logx.Error("NODE", "API server shutdown:", err)
	}
	if err := rpcSrv.Shutdown(ctx); err != nil {
		logx.Error("NODE", "JSON-RPC server shutdown:", err)
	}
	logx.Info("NODE", "Shutdown complete")
}

// initLogging switches logx to the rotated file from the tuning config.
// A missing tuning file is not fatal, the node logs with defaults.
func initLogging(tuningPath string) {
	logCfg, err := config.LoadLogConfig(tuningPath)
	if err != nil {
		logx.Init(logx.FileConfig{})
		logx.Warn("NODE", fmt.Sprintf("Could not read log config from %s, using defaults: %v", tuningPath, err))
		return
	}
	logx.Init(logx.FileConfig{
		Filename:   logCfg.File,
		MaxSizeMB:  logCfg.MaxSizeMB,
		MaxAgeDays: logCfg.MaxAgeDays,
	})
}

func loadTuning(tuningPath string) (*config.HTTPConfig, *config.MineLimitConfig) {
	httpCfg, err := config.LoadHTTPConfig(tuningPath)
	if err != nil {
		logx.Warn("NODE", fmt.Sprintf("Could not read http tuning from %s, using defaults: %v", tuningPath, err))
		httpCfg = nil
	}
	limitCfg, err := config.LoadMineLimitConfig(tuningPath)
	if err != nil {
		logx.Warn("NODE", fmt.Sprintf("Could not read mine limit tuning from %s, using defaults: %v", tuningPath, err))
		limitCfg = nil
	}
	return httpCfg, limitCfg
}

// seedMetrics primes the gauges from stored state so a restarted node
// does not report zero accounts or height until the next write.
func seedMetrics(lgr *ledger.Ledger) {
	monitoring.InitMetrics()

	accounts, err := lgr.Accounts()
	if err != nil {
		logx.Warn("NODE", "Could not seed account metrics:", err)
		return
	}
	monitoring.SetAccountCount(len(accounts))

	supply := uint256.NewInt(0)
	for _, account := range accounts {
		supply.Add(supply, account.Balance)
	}
	monitoring.SetTotalSupply(supply)

	latest, err := lgr.LatestBlock()
	if err == nil {
		monitoring.SetBlockHeight(latest.Height)
	} else if errors.CodeOf(err) != errors.ErrCodeBlockNotFound {
		logx.Warn("NODE", "Could not seed height metric:", err)
	}
}

// startEventConsumer feeds ledger events into the Prometheus counters.
func startEventConsumer(eventBus *events.EventBus) {
	_, ch := eventBus.Subscribe()
	exception.SafeGo("event-consumer", func() {
		for event := range ch {
			recordEvent(event)
		}
	})
}

func recordEvent(event events.LedgerEvent) {
	switch e := event.(type) {
	case *events.AccountCreated:
		monitoring.IncreaseAccountCount()
		monitoring.AddTotalSupply(e.Balance())
	case *events.TransferApplied:
		monitoring.IncreaseAppliedTransferCount()
	case *events.BlockMined:
		monitoring.IncreaseMinedBlockCount()
		monitoring.SetBlockHeight(e.Height())
		monitoring.AddTotalSupply(e.Reward())
	case *events.TransferRejected:
		// the ledger already warns about rejects, and the gateway counts
		// them, so the event is only worth a debug line here
		logx.Debug("EVENTS", fmt.Sprintf("Transfer rejected %s -> %s: %s", e.Address(), e.Receiver(), e.Reason()))
	}
}
