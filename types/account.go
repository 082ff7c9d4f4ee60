package types

import (
	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/errors"
)

// Account is the persistent state of one ledger address. Balance is
// never negative; Nonce counts outbound transfers and feeds the
// transfer hash so equal-looking transfers stay distinguishable.
type Account struct {
	Address   string       `json:"address"`
	Balance   *uint256.Int `json:"balance"`
	Nonce     uint64       `json:"nonce"`
	CreatedAt uint64       `json:"created_at"`

	// HistoryCount numbers this account's history index entries, inbound
	// and outbound alike. It only changes while the account lock is held.
	HistoryCount uint64 `json:"history_count"`
}

// NewAccount returns a fresh account. A nil balance counts as zero.
func NewAccount(address string, balance *uint256.Int, createdAt uint64) *Account {
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	return &Account{
		Address:   address,
		Balance:   balance.Clone(),
		Nonce:     0,
		CreatedAt: createdAt,
	}
}

// Clone returns a deep copy so callers cannot mutate ledger state
// through a returned account.
func (a *Account) Clone() *Account {
	cp := *a
	if a.Balance != nil {
		cp.Balance = a.Balance.Clone()
	} else {
		cp.Balance = uint256.NewInt(0)
	}
	return &cp
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount *uint256.Int) {
	if a.Balance == nil {
		a.Balance = uint256.NewInt(0)
	}
	a.Balance.Add(a.Balance, amount)
}

// Debit subtracts amount from the balance. The balance is left
// untouched when it would go negative.
func (a *Account) Debit(amount *uint256.Int) error {
	if a.Balance == nil || a.Balance.Cmp(amount) < 0 {
		return errors.ErrInsufficientFunds
	}
	a.Balance.Sub(a.Balance, amount)
	return nil
}
