package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// TransferRecord is the immutable fact written once per successful
// transfer. Nonce is the sender's nonce at apply time, which keeps the
// hash unique even for repeated identical transfers.
type TransferRecord struct {
	Sender    string       `json:"sender"`
	Receiver  string       `json:"receiver"`
	Amount    *uint256.Int `json:"amount"`
	Nonce     uint64       `json:"nonce"`
	Timestamp uint64       `json:"timestamp"`
}

func NewTransferRecord(sender, receiver string, amount *uint256.Int, nonce, timestamp uint64) *TransferRecord {
	return &TransferRecord{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount.Clone(),
		Nonce:     nonce,
		Timestamp: timestamp,
	}
}

func (r *TransferRecord) Serialize() []byte {
	metadata := fmt.Sprintf("%s|%s|%s|%d|%d", r.Sender, r.Receiver, uint256ToString(r.Amount), r.Nonce, r.Timestamp)
	return []byte(metadata)
}

func (r *TransferRecord) Hash() string {
	sum256 := sha256.Sum256(r.Serialize())
	return hex.EncodeToString(sum256[:])
}

// RewardRecord is one mined block: appended per mining call, crediting
// the fixed reward to the miner. Height is 1-based and strictly
// increasing.
type RewardRecord struct {
	Height    uint64       `json:"height"`
	Miner     string       `json:"miner"`
	Reward    *uint256.Int `json:"reward"`
	Timestamp uint64       `json:"timestamp"`
}

func NewRewardRecord(height uint64, miner string, reward *uint256.Int, timestamp uint64) *RewardRecord {
	return &RewardRecord{
		Height:    height,
		Miner:     miner,
		Reward:    reward.Clone(),
		Timestamp: timestamp,
	}
}

func (r *RewardRecord) Serialize() []byte {
	metadata := fmt.Sprintf("%d|%s|%s|%d", r.Height, r.Miner, uint256ToString(r.Reward), r.Timestamp)
	return []byte(metadata)
}

func (r *RewardRecord) Hash() string {
	sum256 := sha256.Sum256(r.Serialize())
	return hex.EncodeToString(sum256[:])
}

// HistoryFilter selects which side of a transfer an address matched
// when reading its history.
type HistoryFilter uint32

const (
	HistoryAll HistoryFilter = iota
	HistorySender
	HistoryReceiver
)

func uint256ToString(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
