package api

import (
	"strings"

	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/errors"
	"github.com/tinycoin/tinycoin/types"
	"github.com/tinycoin/tinycoin/utils"
)

// AmountParam accepts an amount either as a JSON number or as a
// decimal string, the two shapes clients send. Parse failures are held
// until Value so the gateway answers with invalid_amount instead of a
// generic decode error.
type AmountParam struct {
	value   *uint256.Int
	present bool
	invalid bool
}

func (a *AmountParam) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	a.present = true
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := utils.ParseAmount(s)
	if err != nil {
		a.invalid = true
		return nil
	}
	a.value = v
	return nil
}

// Value returns the parsed amount. An absent field is an error.
func (a *AmountParam) Value() (*uint256.Int, error) {
	if !a.present || a.invalid || a.value == nil {
		return nil, errors.ErrInvalidAmount
	}
	return a.value, nil
}

// ValueOrZero returns the parsed amount. An absent field counts as zero.
func (a *AmountParam) ValueOrZero() (*uint256.Int, error) {
	if !a.present {
		return uint256.NewInt(0), nil
	}
	if a.invalid || a.value == nil {
		return nil, errors.ErrInvalidAmount
	}
	return a.value, nil
}

type RegisterRequest struct {
	Address        string      `json:"address"`
	InitialBalance AmountParam `json:"initialBalance"`
}

type SendRequest struct {
	Sender   string      `json:"sender"`
	Receiver string      `json:"receiver"`
	Amount   AmountParam `json:"amount"`
}

type MineRequest struct {
	MinerAddress string `json:"minerAddress"`
}

// Response bodies render uint256 amounts as decimal strings.

type AccountResponse struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	Nonce     uint64 `json:"nonce"`
	CreatedAt uint64 `json:"created_at"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type TransferResponse struct {
	Hash      string `json:"hash"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Timestamp uint64 `json:"timestamp"`
}

type BlockResponse struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	Miner     string `json:"miner"`
	Reward    string `json:"reward"`
	Timestamp uint64 `json:"timestamp"`
}

type HistoryResponse struct {
	Address   string              `json:"address"`
	Count     int                 `json:"count"`
	Transfers []*TransferResponse `json:"transfers"`
}

type AccountsResponse struct {
	Count    int                `json:"count"`
	Accounts []*AccountResponse `json:"accounts"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func accountToResponse(a *types.Account) *AccountResponse {
	return &AccountResponse{
		Address:   a.Address,
		Balance:   utils.FormatAmount(a.Balance),
		Nonce:     a.Nonce,
		CreatedAt: a.CreatedAt,
	}
}

func transferToResponse(r *types.TransferRecord) *TransferResponse {
	return &TransferResponse{
		Hash:      r.Hash(),
		Sender:    r.Sender,
		Receiver:  r.Receiver,
		Amount:    utils.FormatAmount(r.Amount),
		Nonce:     r.Nonce,
		Timestamp: r.Timestamp,
	}
}

func transfersToResponse(records []*types.TransferRecord) []*TransferResponse {
	out := make([]*TransferResponse, 0, len(records))
	for _, r := range records {
		out = append(out, transferToResponse(r))
	}
	return out
}

func blockToResponse(r *types.RewardRecord) *BlockResponse {
	return &BlockResponse{
		Height:    r.Height,
		Hash:      r.Hash(),
		Miner:     r.Miner,
		Reward:    utils.FormatAmount(r.Reward),
		Timestamp: r.Timestamp,
	}
}
