package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tinycoin/tinycoin/config"
	"github.com/tinycoin/tinycoin/errors"
	"github.com/tinycoin/tinycoin/exception"
	"github.com/tinycoin/tinycoin/jsonx"
	"github.com/tinycoin/tinycoin/ledger"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/monitoring"
	"github.com/tinycoin/tinycoin/types"
	"github.com/tinycoin/tinycoin/utils"
)

// APIServer is the HTTP gateway over the ledger. It owns request
// validation, authentication and the error-to-status mapping; money
// movement stays inside the ledger.
type APIServer struct {
	ledger *ledger.Ledger
	router *mux.Router
	apiKey string

	httpCfg *config.HTTPConfig

	// Mine endpoint protection
	mineIPLimiter    *rateLimiter
	mineMinerLimiter *rateLimiter

	srv *http.Server
}

// NewAPIServer wires the gateway. Nil tuning configs fall back to the
// same defaults the INI loader applies.
func NewAPIServer(lgr *ledger.Ledger, apiKey string, limitCfg *config.MineLimitConfig, httpCfg *config.HTTPConfig) *APIServer {
	if limitCfg == nil {
		limitCfg = &config.MineLimitConfig{WindowSec: 1, MaxRequests: 5}
	}
	if httpCfg == nil {
		httpCfg = &config.HTTPConfig{ReadTimeoutSec: 5, WriteTimeoutSec: 10, IdleTimeoutSec: 60, ShutdownSec: 10}
	}
	window := time.Duration(limitCfg.WindowSec) * time.Second

	s := &APIServer{
		ledger:           lgr,
		router:           mux.NewRouter(),
		apiKey:           apiKey,
		httpCfg:          httpCfg,
		mineIPLimiter:    newRateLimiter(limitCfg.MaxRequests, window),
		mineMinerLimiter: newRateLimiter(limitCfg.MaxRequests, window),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the gateway routes
func (s *APIServer) setupRoutes() {
	s.router.Use(s.loggingMiddleware, s.recoverMiddleware)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "route not found", http.StatusNotFound)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// Unauthenticated probes
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	monitoring.RegisterMetrics(s.router)

	protected := s.router.PathPrefix("/").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/users/register", s.handleRegister).Methods(http.MethodPost)
	protected.HandleFunc("/balance/{address}", s.handleBalance).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/send", s.handleSend).Methods(http.MethodPost)
	protected.HandleFunc("/mine", s.handleMine).Methods(http.MethodPost)
	protected.HandleFunc("/transactions/user/{address}", s.handleHistory).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/{address}", s.handleHistory).Methods(http.MethodGet)
	protected.HandleFunc("/accounts", s.handleAccounts).Methods(http.MethodGet)
	protected.HandleFunc("/blocks/latest", s.handleLatestBlock).Methods(http.MethodGet)
	protected.HandleFunc("/blocks/{height:[0-9]+}", s.handleBlock).Methods(http.MethodGet)
}

// GetRouter returns the configured router
func (s *APIServer) GetRouter() *mux.Router {
	return s.router
}

// Start binds the listener synchronously, then serves in the
// background so a dead port fails the boot instead of a goroutine.
func (s *APIServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", addr, err)
	}
	s.srv = &http.Server{
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.httpCfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.httpCfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.httpCfg.IdleTimeoutSec) * time.Second,
	}
	exception.SafeGo("api-server", func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logx.Error("API", "HTTP server stopped:", err)
		}
	})
	logx.Info("API", fmt.Sprintf("HTTP gateway listening on %s", addr))
	return nil
}

// Shutdown drains in-flight requests before closing the listener.
func (s *APIServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrInvalidRequest)
		return
	}
	initial, err := req.InitialBalance.ValueOrZero()
	if err != nil {
		s.writeError(w, err)
		return
	}

	account, err := s.ledger.CreateAccount(req.Address, initial)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, accountToResponse(account))
}

func (s *APIServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	account, err := s.ledger.GetAccount(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &BalanceResponse{
		Address: account.Address,
		Balance: utils.FormatAmount(account.Balance),
		Nonce:   account.Nonce,
	})
}

func (s *APIServer) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrInvalidRequest)
		return
	}
	if req.Sender == "" || req.Receiver == "" {
		s.writeError(w, errors.NewError(errors.ErrCodeInvalidRequest, "sender and receiver are required"))
		return
	}
	amount, err := req.Amount.Value()
	if err != nil {
		s.writeError(w, err)
		return
	}

	record, err := s.ledger.Transfer(req.Sender, req.Receiver, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transferToResponse(record))
}

func (s *APIServer) handleMine(w http.ResponseWriter, r *http.Request) {
	var req MineRequest
	if err := jsonx.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrInvalidRequest)
		return
	}
	if req.MinerAddress == "" {
		s.writeError(w, errors.NewError(errors.ErrCodeInvalidRequest, "minerAddress is required"))
		return
	}

	ip := clientIP(r)
	if !s.mineIPLimiter.Allow(ip) {
		logx.Warn("API", fmt.Sprintf("Rate limit exceeded for IP %s (mine)", ip))
		s.writeError(w, errors.ErrRateLimited)
		return
	}
	if !s.mineMinerLimiter.Allow(req.MinerAddress) {
		logx.Warn("API", fmt.Sprintf("Rate limit exceeded for miner %s (mine)", req.MinerAddress))
		s.writeError(w, errors.ErrRateLimited)
		return
	}

	record, err := s.ledger.MineReward(req.MinerAddress)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, blockToResponse(record))
}

func (s *APIServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	filter, err := parseHistoryFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := intQueryParam(r, "limit", 0)
	offset := intQueryParam(r, "offset", 0)

	records, err := s.ledger.History(addr, filter, limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &HistoryResponse{
		Address:   addr,
		Count:     len(records),
		Transfers: transfersToResponse(records),
	})
}

func (s *APIServer) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts()
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]*AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountToResponse(a))
	}
	s.writeJSON(w, http.StatusOK, &AccountsResponse{Count: len(out), Accounts: out})
}

func (s *APIServer) handleBlock(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		s.writeError(w, errors.NewError(errors.ErrCodeInvalidRequest, "height is not a valid number"))
		return
	}
	record, err := s.ledger.GetBlock(height)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, blockToResponse(record))
}

func (s *APIServer) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	record, err := s.ledger.LatestBlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, blockToResponse(record))
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(payload); err != nil {
		logx.Error("API", "Failed to encode response:", err)
	}
}

// writeError maps a ledger error to its HTTP status. Internal faults
// are logged and answered with an opaque message.
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	status := statusOf(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logx.Error("API", "Internal error:", err)
		code = errors.ErrCodeInternal
		msg = errors.ErrMsgInternal
	} else {
		monitoring.RecordRejectedOp(rejectReasonOf(code))
	}
	s.writeJSON(w, status, &ErrorResponse{Code: string(code), Message: msg})
}

func statusOf(code errors.LedgerErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidAddress, errors.ErrCodeInvalidAmount,
		errors.ErrCodeSelfTransfer, errors.ErrCodeInsufficientFunds:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeAccountNotFound, errors.ErrCodeBlockNotFound, errors.ErrCodeTransferNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAccountExists:
		return http.StatusConflict
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func rejectReasonOf(code errors.LedgerErrorCode) monitoring.RejectedReason {
	switch code {
	case errors.ErrCodeInvalidAddress:
		return monitoring.RejectInvalidAddress
	case errors.ErrCodeInvalidAmount:
		return monitoring.RejectInvalidAmount
	case errors.ErrCodeSelfTransfer:
		return monitoring.RejectSelfTransfer
	case errors.ErrCodeAccountNotFound:
		return monitoring.RejectAccountNotFound
	case errors.ErrCodeAccountExists:
		return monitoring.RejectAccountExists
	case errors.ErrCodeInsufficientFunds:
		return monitoring.RejectInsufficientFunds
	case errors.ErrCodeUnauthorized:
		return monitoring.RejectUnauthorized
	case errors.ErrCodeRateLimited:
		return monitoring.RejectRateLimited
	default:
		return monitoring.RejectOther
	}
}

func parseHistoryFilter(raw string) (types.HistoryFilter, error) {
	switch raw {
	case "", "all":
		return types.HistoryAll, nil
	case "sender":
		return types.HistorySender, nil
	case "receiver":
		return types.HistoryReceiver, nil
	default:
		return types.HistoryAll, errors.NewErrorf(errors.ErrCodeInvalidRequest, "filter %q is not one of all, sender, receiver", raw)
	}
}

func intQueryParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
