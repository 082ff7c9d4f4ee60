package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/tinycoin/tinycoin/db"
	"github.com/tinycoin/tinycoin/jsonx"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/types"
)

// Direction of a history index entry relative to the indexed address
const (
	DirectionOut = "out"
	DirectionIn  = "in"
)

// historyEntry is the small index document stored per participant and
// transfer. The record itself lives once under its transfer key.
type historyEntry struct {
	Hash      string `json:"hash"`
	Direction string `json:"direction"`
}

// TransferStore is responsible for persisting operations of transfer records
type TransferStore interface {
	StoreToBatch(batch db.DatabaseBatch, record *types.TransferRecord, senderSeq, receiverSeq uint64) error
	GetByHash(hash string) (*types.TransferRecord, error)
	GetBatch(hashes []string) ([]*types.TransferRecord, error)
	GetByParticipant(addr string, filter types.HistoryFilter, limit, offset int) ([]*types.TransferRecord, error)
	MustClose()
}

// GenericTransferStore provides transfer record storage operations
type GenericTransferStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

// NewGenericTransferStore creates a new transfer record store
func NewGenericTransferStore(dbProvider db.DatabaseProvider) (*GenericTransferStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericTransferStore{
		dbProvider: dbProvider,
	}, nil
}

// StoreToBatch stages the record document plus one history index entry
// per participant into the given batch. Sequence numbers come from the
// participants' history counters, which the caller owns under its
// account locks.
func (ts *GenericTransferStore) StoreToBatch(batch db.DatabaseBatch, record *types.TransferRecord, senderSeq, receiverSeq uint64) error {
	recordData, err := jsonx.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer record: %w", err)
	}

	hash := record.Hash()
	batch.Put(ts.getDbKey(hash), recordData)

	outEntry, err := jsonx.Marshal(&historyEntry{Hash: hash, Direction: DirectionOut})
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	batch.Put(historyKey(record.Sender, senderSeq), outEntry)

	inEntry, err := jsonx.Marshal(&historyEntry{Hash: hash, Direction: DirectionIn})
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	batch.Put(historyKey(record.Receiver, receiverSeq), inEntry)

	return nil
}

// GetByHash retrieves a transfer record by its hash, returning both nil
// when the record does not exist
func (ts *GenericTransferStore) GetByHash(hash string) (*types.TransferRecord, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	data, err := ts.dbProvider.Get(ts.getDbKey(hash))
	if err != nil {
		return nil, fmt.Errorf("could not get transfer %s from db: %w", hash, err)
	}
	if data == nil {
		return nil, nil
	}

	var record types.TransferRecord
	if err := jsonx.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer %s: %w", hash, err)
	}
	return &record, nil
}

// GetBatch retrieves multiple transfer records by hash, preserving the
// input order. Missing or undecodable records are skipped with a warning.
func (ts *GenericTransferStore) GetBatch(hashes []string) ([]*types.TransferRecord, error) {
	if len(hashes) == 0 {
		return []*types.TransferRecord{}, nil
	}

	ts.mu.RLock()
	defer ts.mu.RUnlock()

	keys := make([][]byte, len(hashes))
	for i, hash := range hashes {
		keys[i] = ts.getDbKey(hash)
	}

	values, err := ts.dbProvider.GetBatch(keys)
	if err != nil {
		return nil, fmt.Errorf("could not get transfers from db: %w", err)
	}

	records := make([]*types.TransferRecord, 0, len(hashes))
	for i, hash := range hashes {
		data, ok := values[string(keys[i])]
		if !ok {
			logx.Warn("TRANSFER_STORE", "Missing transfer record for hash", hash)
			continue
		}
		var record types.TransferRecord
		if err := jsonx.Unmarshal(data, &record); err != nil {
			logx.Warn("TRANSFER_STORE", fmt.Sprintf("Failed to unmarshal transfer %s: %s", hash, err.Error()))
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// GetByParticipant returns the transfers the address took part in,
// oldest first. filter narrows to the side the address was on; limit 0
// means no limit. Addresses with no history yield an empty slice.
func (ts *GenericTransferStore) GetByParticipant(addr string, filter types.HistoryFilter, limit, offset int) ([]*types.TransferRecord, error) {
	ts.mu.RLock()
	iterable, ok := ts.dbProvider.(db.IterableProvider)
	if !ok {
		ts.mu.RUnlock()
		return nil, fmt.Errorf("provider does not support iteration")
	}

	type keyedEntry struct {
		key   []byte
		entry historyEntry
	}

	var entries []keyedEntry
	var decodeErr error
	err := iterable.IteratePrefix(historyPrefix(addr), func(key, value []byte) bool {
		var entry historyEntry
		if err := jsonx.Unmarshal(value, &entry); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal history entry at %v: %w", key, err)
			return false
		}
		entries = append(entries, keyedEntry{key: append([]byte(nil), key...), entry: entry})
		return true
	})
	ts.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate history of %s: %w", addr, err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	// redis SCAN yields keys unordered; sequence-suffixed keys restore
	// insertion order when sorted
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	hashes := make([]string, 0, len(entries))
	for _, e := range entries {
		switch filter {
		case types.HistorySender:
			if e.entry.Direction != DirectionOut {
				continue
			}
		case types.HistoryReceiver:
			if e.entry.Direction != DirectionIn {
				continue
			}
		}
		hashes = append(hashes, e.entry.Hash)
	}

	if offset > 0 {
		if offset >= len(hashes) {
			return []*types.TransferRecord{}, nil
		}
		hashes = hashes[offset:]
	}
	if limit > 0 && limit < len(hashes) {
		hashes = hashes[:limit]
	}

	return ts.GetBatch(hashes)
}

func (ts *GenericTransferStore) MustClose() {
	err := ts.dbProvider.Close()
	if err != nil {
		logx.Error("TRANSFER_STORE", "Failed to close db provider:", err.Error())
	}
}

func (ts *GenericTransferStore) getDbKey(hash string) []byte {
	return []byte(PrefixTransfer + hash)
}

// historyPrefix is the scan prefix covering every history entry of addr
func historyPrefix(addr string) []byte {
	prefix := make([]byte, 0, len(PrefixHistory)+len(addr)+1)
	prefix = append(prefix, PrefixHistory...)
	prefix = append(prefix, addr...)
	prefix = append(prefix, keySep)
	return prefix
}

// historyKey addresses one history entry by participant and sequence
func historyKey(addr string, seq uint64) []byte {
	key := make([]byte, 0, len(PrefixHistory)+len(addr)+1+8)
	key = append(key, historyPrefix(addr)...)
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	return append(key, seqBytes[:]...)
}
