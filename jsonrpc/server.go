package jsonrpc

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/tinycoin/tinycoin/errors"
	"github.com/tinycoin/tinycoin/exception"
	"github.com/tinycoin/tinycoin/ledger"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/types"
	"github.com/tinycoin/tinycoin/utils"
)

// JSON-RPC method name constants
const (
	MethodGetAccount     = "tc.getAccount"
	MethodGetBalance     = "tc.getBalance"
	MethodSendTransfer   = "tc.sendTransfer"
	MethodMine           = "tc.mine"
	MethodGetHistory     = "tc.getHistory"
	MethodGetTransfer    = "tc.getTransfer"
	MethodGetBlock       = "tc.getBlock"
	MethodGetLatestBlock = "tc.getLatestBlock"
	MethodGetMinedBlocks = "tc.getMinedBlocks"
)

const headerAPIKey = "X-API-Key"

// Server-defined JSON-RPC error codes, one per ledger failure family.
const (
	codeServerError       jrpc2.Code = -32000
	codeNotFound          jrpc2.Code = -32001
	codeConflict          jrpc2.Code = -32002
	codeInsufficientFunds jrpc2.Code = -32003
	codeRateLimited       jrpc2.Code = -32005
)

// --- Params/Results ---

type getAccountParams struct {
	Address string `json:"address"`
}

type accountResult struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Nonce     uint64 `json:"nonce"`
	CreatedAt uint64 `json:"created_at"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type sendTransferParams struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

type transferResult struct {
	Hash      string `json:"hash"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Timestamp uint64 `json:"timestamp"`
}

type mineParams struct {
	MinerAddress string `json:"minerAddress"`
}

type blockResult struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	Miner     string `json:"miner"`
	Reward    string `json:"reward"`
	Timestamp uint64 `json:"timestamp"`
}

type getHistoryParams struct {
	Address string `json:"address"`
	Filter  string `json:"filter"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

type historyResult struct {
	Address   string            `json:"address"`
	Count     int               `json:"count"`
	Transfers []*transferResult `json:"transfers"`
}

type getTransferParams struct {
	Hash string `json:"hash"`
}

type getBlockParams struct {
	Height uint64 `json:"height"`
}

type getMinedBlocksParams struct {
	Address string `json:"address"`
}

type minedBlocksResult struct {
	Address string         `json:"address"`
	Count   int            `json:"count"`
	Blocks  []*blockResult `json:"blocks"`
}

// --- Server ---

// Server exposes the ledger over JSON-RPC 2.0, bridged onto HTTP. It
// shares the REST gateway's API key and error taxonomy.
type Server struct {
	addr   string
	ledger *ledger.Ledger
	apiKey string

	bridge *jhttp.Bridge
	srv    *http.Server
}

func NewServer(addr string, lgr *ledger.Ledger, apiKey string) *Server {
	return &Server{
		addr:   addr,
		ledger: lgr,
		apiKey: apiKey,
	}
}

// Handler builds the authenticated bridge handler. Separate from Start
// so tests can mount it without binding a port.
func (s *Server) Handler() http.Handler {
	if s.bridge == nil {
		b := jhttp.NewBridge(s.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})
		s.bridge = &b
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(headerAPIKey)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			logx.Warn("JSONRPC", fmt.Sprintf("Unauthorized request from %s", r.RemoteAddr))
			http.Error(w, errors.ErrMsgUnauthorized, http.StatusUnauthorized)
			return
		}
		s.bridge.ServeHTTP(w, r)
	})
}

// Start binds the listener synchronously and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("jsonrpc listen on %s: %w", s.addr, err)
	}
	s.srv = &http.Server{Handler: s.Handler()}
	exception.SafeGo("jsonrpc-server", func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logx.Error("JSONRPC", "Server stopped:", err)
		}
	})
	logx.Info("JSONRPC", fmt.Sprintf("JSON-RPC listening on %s", s.addr))
	return nil
}

// Shutdown stops the HTTP server and the bridge behind it.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.srv != nil {
		err = s.srv.Shutdown(ctx)
	}
	if s.bridge != nil {
		if cerr := s.bridge.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodGetAccount: handler.New(func(ctx context.Context, p getAccountParams) (*accountResult, error) {
			account, err := s.ledger.GetAccount(p.Address)
			if err != nil {
				return nil, s.rpcError(err)
			}
			return accountToResult(account), nil
		}),
		MethodGetBalance: handler.New(func(ctx context.Context, p getAccountParams) (*balanceResult, error) {
			balance, err := s.ledger.Balance(p.Address)
			if err != nil {
				return nil, s.rpcError(err)
			}
			return &balanceResult{Address: p.Address, Balance: utils.FormatAmount(balance)}, nil
		}),
		MethodSendTransfer: handler.New(func(ctx context.Context, p sendTransferParams) (*transferResult, error) {
			amount, err := utils.ParseAmount(p.Amount)
			if err != nil {
				return nil, s.rpcError(err)
			}
			record, err := s.ledger.Transfer(p.Sender, p.Receiver, amount)
			if err != nil {
				return nil, s.rpcError(err)
			}
			return transferToResult(record), nil
		}),
		MethodMine: handler.New(func(ctx context.Context, p mineParams) (*blockResult, error) {
			record, err := s.ledger.MineReward(p.MinerAddress)
			if err != nil {
				return nil, s.rpcError(err)
			}
			return blockToResult(record), nil
		}),
		MethodGetHistory: handler.New(func(ctx context.Context, p getHistoryParams) (*historyResult, error) {
			filter, err := historyFilterOf(p.Filter)
			if err != nil {
				return nil, s.rpcError(err)
			}
			records, err := s.ledger.History(p.Address, filter, p.Limit, p.Offset)
			if err != nil {
				return nil, s.rpcError(err)
			}
			out := make([]*transferResult, 0, len(records))
			for _, r := range records {
				out = append(out, transferToResult(r))
			}
			return &historyResult{Address: p.Address, Count: len(out), Transfers: out}, nil
		}),
		MethodGetTransfer: handler.New(func(ctx context.Context, p getTransferParams) (*transferResult, error) {
			record, err := s.ledger.GetTransfer(p.Hash)
			if err != nil {
				return nil, s.rpcError(err)
			}
			return transferToResult(record), nil
		}),
		MethodGetBlock: handler.New(func(ctx context.Context, p getBlockParams) (*blockResult, error) {
			record, err := s.ledger.GetBlock(p.Height)
			if err != nil {
				return nil, s.rpcError(err)
			}
			return blockToResult(record), nil
		}),
		MethodGetLatestBlock: handler.New(func(ctx context.Context) (*blockResult, error) {
			record, err := s.ledger.LatestBlock()
			if err != nil {
				return nil, s.rpcError(err)
			}
			return blockToResult(record), nil
		}),
		MethodGetMinedBlocks: handler.New(func(ctx context.Context, p getMinedBlocksParams) (*minedBlocksResult, error) {
			records, err := s.ledger.BlocksByMiner(p.Address)
			if err != nil {
				return nil, s.rpcError(err)
			}
			out := make([]*blockResult, 0, len(records))
			for _, r := range records {
				out = append(out, blockToResult(r))
			}
			return &minedBlocksResult{Address: p.Address, Count: len(out), Blocks: out}, nil
		}),
	}
}

// rpcError converts a ledger error into a jrpc2 error whose data
// carries the ledger code, so clients can branch without parsing
// messages. Internal faults stay opaque.
func (s *Server) rpcError(err error) error {
	code := errors.CodeOf(err)
	msg := err.Error()
	if code == errors.ErrCodeInternal || code == errors.ErrCodeStorage {
		logx.Error("JSONRPC", "Internal error:", err)
		code = errors.ErrCodeInternal
		msg = errors.ErrMsgInternal
	}
	return jrpc2.Errorf(rpcCodeOf(code), "%s", msg).WithData(map[string]string{"code": string(code)})
}

func rpcCodeOf(code errors.LedgerErrorCode) jrpc2.Code {
	switch code {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidAddress,
		errors.ErrCodeInvalidAmount, errors.ErrCodeSelfTransfer:
		return jrpc2.InvalidParams
	case errors.ErrCodeAccountNotFound, errors.ErrCodeBlockNotFound, errors.ErrCodeTransferNotFound:
		return codeNotFound
	case errors.ErrCodeAccountExists:
		return codeConflict
	case errors.ErrCodeInsufficientFunds:
		return codeInsufficientFunds
	case errors.ErrCodeRateLimited:
		return codeRateLimited
	default:
		return codeServerError
	}
}

func historyFilterOf(raw string) (types.HistoryFilter, error) {
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

func accountToResult(a *types.Account) *accountResult {
	return &accountResult{
		Address:   a.Address,
		Balance:   utils.FormatAmount(a.Balance),
		Nonce:     a.Nonce,
		CreatedAt: a.CreatedAt,
	}
}

func transferToResult(r *types.TransferRecord) *transferResult {
	return &transferResult{
		Hash:      r.Hash(),
		Sender:    r.Sender,
		Receiver:  r.Receiver,
		Amount:    utils.FormatAmount(r.Amount),
		Nonce:     r.Nonce,
		Timestamp: r.Timestamp,
	}
}

func blockToResult(r *types.RewardRecord) *blockResult {
	return &blockResult{
		Height:    r.Height,
		Hash:      r.Hash(),
		Miner:     r.Miner,
		Reward:    utils.FormatAmount(r.Reward),
		Timestamp: r.Timestamp,
	}
}
