package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/api"
	"github.com/tinycoin/tinycoin/errors"
	"github.com/tinycoin/tinycoin/jsonx"
	"github.com/tinycoin/tinycoin/utils"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to a node's REST gateway. Failed requests come back as
// typed ledger errors, so callers can branch on errors.CodeOf.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type registerPayload struct {
	Address        string `json:"address"`
	InitialBalance string `json:"initialBalance,omitempty"`
}

type sendPayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

type minePayload struct {
	MinerAddress string `json:"minerAddress"`
}

// Register creates an account. A nil initialBalance registers with zero.
func (c *Client) Register(ctx context.Context, address string, initialBalance *uint256.Int) (*api.AccountResponse, error) {
	payload := &registerPayload{Address: address}
	if initialBalance != nil {
		payload.InitialBalance = utils.FormatAmount(initialBalance)
	}
	var account api.AccountResponse
	if err := c.do(ctx, http.MethodPost, "/users/register", payload, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) Balance(ctx context.Context, address string) (*api.BalanceResponse, error) {
	var balance api.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/balance/"+url.PathEscape(address), nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (c *Client) Send(ctx context.Context, sender, receiver string, amount *uint256.Int) (*api.TransferResponse, error) {
	payload := &sendPayload{Sender: sender, Receiver: receiver, Amount: utils.FormatAmount(amount)}
	var transfer api.TransferResponse
	if err := c.do(ctx, http.MethodPost, "/transactions/send", payload, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (c *Client) Mine(ctx context.Context, miner string) (*api.BlockResponse, error) {
	var block api.BlockResponse
	if err := c.do(ctx, http.MethodPost, "/mine", &minePayload{MinerAddress: miner}, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// History lists transfers for address. filter is "", "all", "sender"
// or "receiver"; limit 0 means everything.
func (c *Client) History(ctx context.Context, address, filter string, limit, offset int) (*api.HistoryResponse, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/transactions/user/" + url.PathEscape(address)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var history api.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (c *Client) Accounts(ctx context.Context) (*api.AccountsResponse, error) {
	var accounts api.AccountsResponse
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return &accounts, nil
}

func (c *Client) Block(ctx context.Context, height uint64) (*api.BlockResponse, error) {
	var block api.BlockResponse
	if err := c.do(ctx, http.MethodGet, "/blocks/"+strconv.FormatUint(height, 10), nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

func (c *Client) LatestBlock(ctx context.Context) (*api.BlockResponse, error) {
	var block api.BlockResponse
	if err := c.do(ctx, http.MethodGet, "/blocks/latest", nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

func (c *Client) CheckHealth(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := jsonx.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(api.HeaderAPIKey, c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if err := jsonx.Unmarshal(raw, &apiErr); err == nil && apiErr.Code != "" {
			return errors.NewError(errors.LedgerErrorCode(apiErr.Code), apiErr.Message)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return jsonx.Unmarshal(raw, out)
}
