package events

import (
	"time"

	"github.com/holiman/uint256"
)

// EventType is an enum-like string type for ledger events
type EventType string

const (
	EventAccountCreated   EventType = "AccountCreated"
	EventTransferApplied  EventType = "TransferApplied"
	EventTransferRejected EventType = "TransferRejected"
	EventBlockMined       EventType = "BlockMined"
)

// LedgerEvent represents any event that occurs in the ledger
type LedgerEvent interface {
	Type() EventType
	Timestamp() time.Time
	Address() string
}

// AccountCreated event when a new account is registered
type AccountCreated struct {
	address   string
	balance   *uint256.Int
	timestamp time.Time
}

func NewAccountCreated(address string, balance *uint256.Int) *AccountCreated {
	return &AccountCreated{
		address:   address,
		balance:   balance.Clone(),
		timestamp: time.Now(),
	}
}

func (e *AccountCreated) Type() EventType {
	return EventAccountCreated
}

func (e *AccountCreated) Timestamp() time.Time {
	return e.timestamp
}

func (e *AccountCreated) Address() string {
	return e.address
}

func (e *AccountCreated) Balance() *uint256.Int {
	return e.balance
}

// TransferApplied event when a transfer has been committed
type TransferApplied struct {
	hash      string
	sender    string
	receiver  string
	amount    *uint256.Int
	timestamp time.Time
}

func NewTransferApplied(hash, sender, receiver string, amount *uint256.Int) *TransferApplied {
	return &TransferApplied{
		hash:      hash,
		sender:    sender,
		receiver:  receiver,
		amount:    amount.Clone(),
		timestamp: time.Now(),
	}
}

func (e *TransferApplied) Type() EventType {
	return EventTransferApplied
}

func (e *TransferApplied) Timestamp() time.Time {
	return e.timestamp
}

// Address reports the initiating side of the transfer
func (e *TransferApplied) Address() string {
	return e.sender
}

func (e *TransferApplied) Hash() string {
	return e.hash
}

func (e *TransferApplied) Sender() string {
	return e.sender
}

func (e *TransferApplied) Receiver() string {
	return e.receiver
}

func (e *TransferApplied) Amount() *uint256.Int {
	return e.amount
}

// TransferRejected event when a transfer fails validation
type TransferRejected struct {
	sender    string
	receiver  string
	reason    string
	timestamp time.Time
}

func NewTransferRejected(sender, receiver, reason string) *TransferRejected {
	return &TransferRejected{
		sender:    sender,
		receiver:  receiver,
		reason:    reason,
		timestamp: time.Now(),
	}
}

func (e *TransferRejected) Type() EventType {
	return EventTransferRejected
}

func (e *TransferRejected) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransferRejected) Address() string {
	return e.sender
}

func (e *TransferRejected) Receiver() string {
	return e.receiver
}

func (e *TransferRejected) Reason() string {
	return e.reason
}

// BlockMined event when a reward block has been appended
type BlockMined struct {
	height    uint64
	miner     string
	reward    *uint256.Int
	timestamp time.Time
}

func NewBlockMined(height uint64, miner string, reward *uint256.Int) *BlockMined {
	return &BlockMined{
		height:    height,
		miner:     miner,
		reward:    reward.Clone(),
		timestamp: time.Now(),
	}
}

func (e *BlockMined) Type() EventType {
	return EventBlockMined
}

func (e *BlockMined) Timestamp() time.Time {
	return e.timestamp
}

func (e *BlockMined) Address() string {
	return e.miner
}

func (e *BlockMined) Height() uint64 {
	return e.height
}

func (e *BlockMined) Reward() *uint256.Int {
	return e.reward
}
