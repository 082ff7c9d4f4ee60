package monitoring

import (
	"math/big"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinycoin/tinycoin/logx"
)

// RejectedReason labels the rejected-operation counter. Values mirror
// the ledger error codes.
type RejectedReason string

var (
	RejectInvalidAddress    RejectedReason = "invalid_address"
	RejectInvalidAmount     RejectedReason = "invalid_amount"
	RejectSelfTransfer      RejectedReason = "self_transfer"
	RejectAccountNotFound   RejectedReason = "account_not_found"
	RejectAccountExists     RejectedReason = "account_exists"
	RejectInsufficientFunds RejectedReason = "insufficient_funds"
	RejectUnauthorized      RejectedReason = "unauthorized"
	RejectRateLimited       RejectedReason = "rate_limited"
	RejectOther             RejectedReason = "other"
)

type ledgerPromMetrics struct {
	nodeUpUnixSeconds   prometheus.Gauge
	appliedTransfers    prometheus.Counter
	minedBlocks         prometheus.Counter
	rejectedOps         *prometheus.CounterVec
	accountCount        prometheus.Gauge
	totalSupply         prometheus.Gauge
	blockHeight         prometheus.Gauge
	panicCount          prometheus.Counter
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func newLedgerPromMetrics() *ledgerPromMetrics {
	return &ledgerPromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tinycoin_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node start",
			},
		),
		appliedTransfers: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tinycoin_applied_transfer_count",
				Help: "The total number of committed transfers",
			},
		),
		minedBlocks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tinycoin_mined_block_count",
				Help: "The total number of mined reward blocks",
			},
		),
		rejectedOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinycoin_rejected_op_count",
				Help: "The total number of rejected ledger operations",
			},
			[]string{"reason"},
		),
		accountCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tinycoin_account_count",
				Help: "The number of registered accounts",
			},
		),
		totalSupply: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tinycoin_total_supply",
				Help: "The sum of all account balances",
			},
		),
		blockHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tinycoin_block_height",
				Help: "The current chain tip height",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tinycoin_panic_count",
				Help: "The total number of recovered panics",
			},
		),
		httpRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinycoin_http_request_count",
				Help: "The total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tinycoin_http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
			},
			[]string{"route"},
		),
	}
}

var (
	ledgerMetrics *ledgerPromMetrics
	metricsOnce   sync.Once
)

// metrics registers the collectors exactly once per process, so helper
// calls are safe in any order
func metrics() *ledgerPromMetrics {
	metricsOnce.Do(func() {
		ledgerMetrics = newLedgerPromMetrics()
	})
	return ledgerMetrics
}

// InitMetrics initializes metrics for the node but does not expose them yet
func InitMetrics() {
	metrics().nodeUpUnixSeconds.SetToCurrentTime()
}

// RegisterMetrics exposes the metrics endpoint on the given router
func RegisterMetrics(router *mux.Router) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	router.Handle("/metrics", promhttp.Handler())
}

func IncreaseAppliedTransferCount() {
	metrics().appliedTransfers.Inc()
}

func IncreaseMinedBlockCount() {
	metrics().minedBlocks.Inc()
}

func RecordRejectedOp(reason RejectedReason) {
	metrics().rejectedOps.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func SetAccountCount(count int) {
	metrics().accountCount.Set(float64(count))
}

func IncreaseAccountCount() {
	metrics().accountCount.Inc()
}

func SetBlockHeight(height uint64) {
	metrics().blockHeight.Set(float64(height))
}

// SetTotalSupply overwrites the supply gauge, used at boot
func SetTotalSupply(supply *uint256.Int) {
	metrics().totalSupply.Set(uint256ToFloat(supply))
}

// AddTotalSupply bumps the supply gauge when new money enters the
// ledger (registration balances, mining rewards)
func AddTotalSupply(delta *uint256.Int) {
	metrics().totalSupply.Add(uint256ToFloat(delta))
}

func IncreasePanicCount() {
	metrics().panicCount.Inc()
}

func IncreaseHTTPRequestCount(route, method, status string) {
	metrics().httpRequests.With(prometheus.Labels{
		"route":  route,
		"method": method,
		"status": status,
	}).Inc()
}

func RecordHTTPRequestDuration(route string, duration time.Duration) {
	metrics().httpRequestDuration.With(prometheus.Labels{
		"route": route,
	}).Observe(duration.Seconds())
}

// uint256ToFloat converts with precision loss only beyond float64 range
func uint256ToFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
