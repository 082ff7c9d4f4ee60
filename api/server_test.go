package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinycoin/tinycoin/config"
	"github.com/tinycoin/tinycoin/db"
	"github.com/tinycoin/tinycoin/events"
	"github.com/tinycoin/tinycoin/ledger"
	"github.com/tinycoin/tinycoin/store"
)

const testAPIKey = "test-secret-key"

func newTestServer(t *testing.T) *APIServer {
	t.Helper()
	cfg := &store.StoreConfig{Type: store.LevelDBStoreType, Directory: t.TempDir()}
	accountStore, transferStore, blockStore, provider, err := store.CreateStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { provider.Close() })

	lgr := ledger.NewLedger(accountStore, transferStore, blockStore,
		db.NewDBTxManager(provider), events.NewEventBus(), uint256.NewInt(10))
	return NewAPIServer(lgr, testAPIKey, &config.MineLimitConfig{WindowSec: 60, MaxRequests: 3}, nil)
}

func doRequest(t *testing.T, s *APIServer, method, path, body string, withKey bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if withKey {
		req.Header.Set(HeaderAPIKey, testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	decodeJSON(t, rec, &e)
	return e.Code
}

func register(t *testing.T, s *APIServer, addr string, balance uint64) {
	t.Helper()
	rec := doRequest(t, s, http.MethodPost, "/users/register",
		fmt.Sprintf(`{"address":%q,"initialBalance":%d}`, addr, balance), true)
	require.Equal(t, http.StatusCreated, rec.Code, "register %s: %s", addr, rec.Body.String())
}

func TestHealthIsOpen(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsIsOpen(t *testing.T) {
	s := newTestServer(t)

	// one counted request so the exposition carries our series
	doRequest(t, s, http.MethodGet, "/health", "", false)

	rec := doRequest(t, s, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tinycoin_http_request_count")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/users/register", `{"address":"alice"}`, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errCode(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(`{"address":"alice"}`))
	req.Header.Set(HeaderAPIKey, "wrong-key")
	wrongRec := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(wrongRec, req)
	require.Equal(t, http.StatusUnauthorized, wrongRec.Code)

	// neither attempt registered anything
	listRec := doRequest(t, s, http.MethodGet, "/accounts", "", true)
	require.Equal(t, http.StatusOK, listRec.Code)
	var accounts AccountsResponse
	decodeJSON(t, listRec, &accounts)
	assert.Equal(t, 0, accounts.Count)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/users/register", `{"address":"alice","initialBalance":1000}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var account AccountResponse
	decodeJSON(t, rec, &account)
	assert.Equal(t, "alice", account.Address)
	assert.Equal(t, "1000", account.Balance)
	assert.Equal(t, uint64(0), account.Nonce)
	assert.NotZero(t, account.CreatedAt)

	dup := doRequest(t, s, http.MethodPost, "/users/register", `{"address":"alice","initialBalance":5}`, true)
	require.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "account_exists", errCode(t, dup))

	// the losing registration left the balance alone
	bal := doRequest(t, s, http.MethodGet, "/balance/alice", "", true)
	require.Equal(t, http.StatusOK, bal.Code)
	var balance BalanceResponse
	decodeJSON(t, bal, &balance)
	assert.Equal(t, "1000", balance.Balance)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty address", `{"address":""}`, http.StatusBadRequest, "invalid_address"},
		{"whitespace address", `{"address":"has space"}`, http.StatusBadRequest, "invalid_address"},
		{"garbage balance", `{"address":"bob","initialBalance":"abc"}`, http.StatusBadRequest, "invalid_amount"},
		{"negative balance", `{"address":"bob","initialBalance":-5}`, http.StatusBadRequest, "invalid_amount"},
		{"malformed body", `{"address":`, http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/users/register", tc.body, true)
			require.Equal(t, tc.status, rec.Code, "body: %s", rec.Body.String())
			assert.Equal(t, tc.code, errCode(t, rec))
		})
	}

	// omitted balance defaults to zero, string form is accepted
	rec := doRequest(t, s, http.MethodPost, "/users/register", `{"address":"carol"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var account AccountResponse
	decodeJSON(t, rec, &account)
	assert.Equal(t, "0", account.Balance)

	rec = doRequest(t, s, http.MethodPost, "/users/register", `{"address":"dave","initialBalance":"250"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	decodeJSON(t, rec, &account)
	assert.Equal(t, "250", account.Balance)
}

func TestBalanceNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/balance/ghost", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "account_not_found", errCode(t, rec))
}

func TestSendTransfer(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "alice", 100)
	register(t, s, "bob", 0)

	rec := doRequest(t, s, http.MethodPost, "/transactions/send",
		`{"sender":"alice","receiver":"bob","amount":40}`, true)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var transfer TransferResponse
	decodeJSON(t, rec, &transfer)
	assert.Equal(t, "alice", transfer.Sender)
	assert.Equal(t, "bob", transfer.Receiver)
	assert.Equal(t, "40", transfer.Amount)
	assert.Len(t, transfer.Hash, 64)

	var balance BalanceResponse
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/balance/alice", "", true), &balance)
	assert.Equal(t, "60", balance.Balance)
	assert.Equal(t, uint64(1), balance.Nonce)
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/balance/bob", "", true), &balance)
	assert.Equal(t, "40", balance.Balance)

	// string amounts work the same
	rec = doRequest(t, s, http.MethodPost, "/transactions/send",
		`{"sender":"alice","receiver":"bob","amount":"25"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/balance/alice", "", true), &balance)
	assert.Equal(t, "35", balance.Balance)
}

func TestSendTransferValidation(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "alice", 30)
	register(t, s, "bob", 0)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing sender", `{"receiver":"bob","amount":1}`, http.StatusBadRequest, "invalid_request"},
		{"missing amount", `{"sender":"alice","receiver":"bob"}`, http.StatusBadRequest, "invalid_amount"},
		{"zero amount", `{"sender":"alice","receiver":"bob","amount":0}`, http.StatusBadRequest, "invalid_amount"},
		{"negative amount", `{"sender":"alice","receiver":"bob","amount":-5}`, http.StatusBadRequest, "invalid_amount"},
		{"fractional amount", `{"sender":"alice","receiver":"bob","amount":1.5}`, http.StatusBadRequest, "invalid_amount"},
		{"garbage amount", `{"sender":"alice","receiver":"bob","amount":"xyz"}`, http.StatusBadRequest, "invalid_amount"},
		{"self transfer", `{"sender":"alice","receiver":"alice","amount":1}`, http.StatusBadRequest, "self_transfer"},
		{"unknown receiver", `{"sender":"alice","receiver":"ghost","amount":1}`, http.StatusNotFound, "account_not_found"},
		{"unknown sender", `{"sender":"ghost","receiver":"bob","amount":1}`, http.StatusNotFound, "account_not_found"},
		{"insufficient funds", `{"sender":"alice","receiver":"bob","amount":31}`, http.StatusBadRequest, "insufficient_funds"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/transactions/send", tc.body, true)
			require.Equal(t, tc.status, rec.Code, "body: %s", rec.Body.String())
			assert.Equal(t, tc.code, errCode(t, rec))
		})
	}

	// nothing above moved any money
	var balance BalanceResponse
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/balance/alice", "", true), &balance)
	assert.Equal(t, "30", balance.Balance)
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/balance/bob", "", true), &balance)
	assert.Equal(t, "0", balance.Balance)
}

func TestMine(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/mine", `{}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errCode(t, rec))

	rec = doRequest(t, s, http.MethodPost, "/mine", `{"minerAddress":"ghost"}`, true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "account_not_found", errCode(t, rec))

	register(t, s, "miner", 5)
	rec = doRequest(t, s, http.MethodPost, "/mine", `{"minerAddress":"miner"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var block BlockResponse
	decodeJSON(t, rec, &block)
	assert.Equal(t, uint64(1), block.Height)
	assert.Equal(t, "miner", block.Miner)
	assert.Equal(t, "10", block.Reward)
	assert.Len(t, block.Hash, 64)

	var balance BalanceResponse
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/balance/miner", "", true), &balance)
	assert.Equal(t, "15", balance.Balance)
}

func TestMineRateLimited(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "miner", 0)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, s, http.MethodPost, "/mine", `{"minerAddress":"miner"}`, true)
		require.Equal(t, http.StatusOK, rec.Code, "mine %d: %s", i, rec.Body.String())
	}

	rec := doRequest(t, s, http.MethodPost, "/mine", `{"minerAddress":"miner"}`, true)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", errCode(t, rec))

	// the limited attempt minted nothing
	var balance BalanceResponse
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/balance/miner", "", true), &balance)
	assert.Equal(t, "30", balance.Balance)
}

func TestHistory(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "alice", 100)
	register(t, s, "bob", 0)

	rec := doRequest(t, s, http.MethodGet, "/transactions/user/alice", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	decodeJSON(t, rec, &history)
	assert.Equal(t, 0, history.Count)
	assert.NotNil(t, history.Transfers)

	doRequest(t, s, http.MethodPost, "/transactions/send", `{"sender":"alice","receiver":"bob","amount":10}`, true)
	doRequest(t, s, http.MethodPost, "/transactions/send", `{"sender":"alice","receiver":"bob","amount":20}`, true)
	doRequest(t, s, http.MethodPost, "/transactions/send", `{"sender":"bob","receiver":"alice","amount":5}`, true)

	decodeJSON(t, doRequest(t, s, http.MethodGet, "/transactions/user/alice", "", true), &history)
	require.Equal(t, 3, history.Count)
	assert.Equal(t, "10", history.Transfers[0].Amount)
	assert.Equal(t, "20", history.Transfers[1].Amount)
	assert.Equal(t, "5", history.Transfers[2].Amount)

	// the short alias answers the same
	var alias HistoryResponse
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/transactions/alice", "", true), &alias)
	assert.Equal(t, history.Count, alias.Count)

	decodeJSON(t, doRequest(t, s, http.MethodGet, "/transactions/user/alice?filter=sender", "", true), &history)
	require.Equal(t, 2, history.Count)
	for _, tr := range history.Transfers {
		assert.Equal(t, "alice", tr.Sender)
	}

	decodeJSON(t, doRequest(t, s, http.MethodGet, "/transactions/user/alice?filter=receiver", "", true), &history)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, "alice", history.Transfers[0].Receiver)

	decodeJSON(t, doRequest(t, s, http.MethodGet, "/transactions/user/alice?limit=1&offset=1", "", true), &history)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, "20", history.Transfers[0].Amount)

	bad := doRequest(t, s, http.MethodGet, "/transactions/user/alice?filter=bogus", "", true)
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "invalid_request", errCode(t, bad))
}

func TestBlocks(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/blocks/latest", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "block_not_found", errCode(t, rec))

	register(t, s, "miner", 0)
	doRequest(t, s, http.MethodPost, "/mine", `{"minerAddress":"miner"}`, true)
	doRequest(t, s, http.MethodPost, "/mine", `{"minerAddress":"miner"}`, true)

	var block BlockResponse
	decodeJSON(t, doRequest(t, s, http.MethodGet, "/blocks/1", "", true), &block)
	assert.Equal(t, uint64(1), block.Height)

	decodeJSON(t, doRequest(t, s, http.MethodGet, "/blocks/latest", "", true), &block)
	assert.Equal(t, uint64(2), block.Height)

	rec = doRequest(t, s, http.MethodGet, "/blocks/99", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "block_not_found", errCode(t, rec))

	// non-numeric heights never reach the handler
	rec = doRequest(t, s, http.MethodGet, "/blocks/abc", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
