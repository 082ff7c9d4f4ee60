package types

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/errors"
)

func TestAccountDebitCredit(t *testing.T) {
	acc := NewAccount("alice", uint256.NewInt(100), 1700000000)

	if err := acc.Debit(uint256.NewInt(40)); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if acc.Balance.Uint64() != 60 {
		t.Errorf("balance after debit = %s, want 60", acc.Balance)
	}

	acc.Credit(uint256.NewInt(15))
	if acc.Balance.Uint64() != 75 {
		t.Errorf("balance after credit = %s, want 75", acc.Balance)
	}

	if err := acc.Debit(uint256.NewInt(76)); !errors.Is(err, errors.ErrInsufficientFunds) {
		t.Errorf("overdraw should fail with ErrInsufficientFunds, got %v", err)
	}
	if acc.Balance.Uint64() != 75 {
		t.Errorf("failed debit must not move the balance, got %s", acc.Balance)
	}
}

func TestAccountClone(t *testing.T) {
	acc := NewAccount("alice", uint256.NewInt(100), 1700000000)
	acc.Nonce = 2
	acc.HistoryCount = 4

	clone := acc.Clone()
	clone.Credit(uint256.NewInt(50))
	clone.Nonce = 9

	if acc.Balance.Uint64() != 100 || acc.Nonce != 2 {
		t.Errorf("mutating the clone leaked into the original: %+v", acc)
	}
	if clone.HistoryCount != 4 || clone.CreatedAt != acc.CreatedAt {
		t.Errorf("clone lost fields: %+v", clone)
	}
}

func TestNewAccountNilBalance(t *testing.T) {
	acc := NewAccount("alice", nil, 0)
	if acc.Balance == nil || !acc.Balance.IsZero() {
		t.Errorf("nil starting balance should become zero, got %v", acc.Balance)
	}
}

func TestNewAccountClonesBalance(t *testing.T) {
	seed := uint256.NewInt(10)
	acc := NewAccount("alice", seed, 0)
	seed.SetUint64(999)
	if acc.Balance.Uint64() != 10 {
		t.Errorf("account balance must not alias the caller's value, got %s", acc.Balance)
	}
}
