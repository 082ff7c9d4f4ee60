package store

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/tinycoin/tinycoin/db"
	"github.com/tinycoin/tinycoin/jsonx"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/types"
)

// BlockStore abstracts storage of mined reward records. Heights are
// 1-based; height 0 means "no blocks yet".
type BlockStore interface {
	AppendToBatch(batch db.DatabaseBatch, record *types.RewardRecord) error
	GetByHeight(height uint64) (*types.RewardRecord, error)
	LatestHeight() (uint64, bool, error)
	Latest() (*types.RewardRecord, error)
	GetByMiner(addr string) ([]*types.RewardRecord, error)
	MustClose()
}

// GenericBlockStore is a database-agnostic implementation over DatabaseProvider
type GenericBlockStore struct {
	mu       sync.RWMutex
	provider db.DatabaseProvider
}

// NewGenericBlockStore creates a new generic block store with the given provider
func NewGenericBlockStore(provider db.DatabaseProvider) (*GenericBlockStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericBlockStore{provider: provider}, nil
}

// heightToBlockKey converts a block height to its storage key
func heightToBlockKey(height uint64) []byte {
	key := make([]byte, len(PrefixBlock)+8)
	copy(key, PrefixBlock)
	binary.BigEndian.PutUint64(key[len(PrefixBlock):], height)
	return key
}

// minerIndexKey addresses one mined block in the per-miner index
func minerIndexKey(miner string, height uint64) []byte {
	key := make([]byte, 0, len(PrefixBlockMiner)+len(miner)+1+8)
	key = append(key, PrefixBlockMiner...)
	key = append(key, miner...)
	key = append(key, keySep)
	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], height)
	return append(key, heightBytes[:]...)
}

func latestHeightKey() []byte {
	return []byte(PrefixBlockMeta + BlockMetaKeyLatestHeight)
}

// AppendToBatch stages the block document, the per-miner index entry
// and the latest-height marker into the given batch. The caller owns
// height allocation and commits the batch.
func (s *GenericBlockStore) AppendToBatch(batch db.DatabaseBatch, record *types.RewardRecord) error {
	blockData, err := jsonx.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal block %d: %w", record.Height, err)
	}

	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], record.Height)

	batch.Put(heightToBlockKey(record.Height), blockData)
	batch.Put(minerIndexKey(record.Miner, record.Height), heightBytes[:])
	batch.Put(latestHeightKey(), heightBytes[:])
	return nil
}

// GetByHeight retrieves a block by height, returning both nil when absent
func (s *GenericBlockStore) GetByHeight(height uint64) (*types.RewardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.provider.Get(heightToBlockKey(height))
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", height, err)
	}
	if value == nil {
		return nil, nil
	}

	var record types.RewardRecord
	if err := jsonx.Unmarshal(value, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block %d: %w", height, err)
	}
	return &record, nil
}

// LatestHeight returns the height of the newest block and whether any
// block exists at all
func (s *GenericBlockStore) LatestHeight() (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.provider.Get(latestHeightKey())
	if err != nil {
		return 0, false, fmt.Errorf("failed to get latest height: %w", err)
	}
	if value == nil {
		return 0, false, nil
	}
	if len(value) != 8 {
		return 0, false, fmt.Errorf("invalid latest height value length: %d", len(value))
	}
	return binary.BigEndian.Uint64(value), true, nil
}

// Latest returns the newest block, or both nil when the chain is empty
func (s *GenericBlockStore) Latest() (*types.RewardRecord, error) {
	height, ok, err := s.LatestHeight()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.GetByHeight(height)
}

// GetByMiner returns all blocks mined by the address, oldest first
func (s *GenericBlockStore) GetByMiner(addr string) ([]*types.RewardRecord, error) {
	s.mu.RLock()
	iterable, ok := s.provider.(db.IterableProvider)
	if !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("provider does not support iteration")
	}

	prefix := make([]byte, 0, len(PrefixBlockMiner)+len(addr)+1)
	prefix = append(prefix, PrefixBlockMiner...)
	prefix = append(prefix, addr...)
	prefix = append(prefix, keySep)

	var heights []uint64
	var badValue error
	err := iterable.IteratePrefix(prefix, func(key, value []byte) bool {
		if len(value) != 8 {
			badValue = fmt.Errorf("invalid miner index value length: %d", len(value))
			return false
		}
		heights = append(heights, binary.BigEndian.Uint64(value))
		return true
	})
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate blocks of %s: %w", addr, err)
	}
	if badValue != nil {
		return nil, badValue
	}

	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	blocks := make([]*types.RewardRecord, 0, len(heights))
	for _, height := range heights {
		record, err := s.GetByHeight(height)
		if err != nil {
			return nil, err
		}
		if record == nil {
			logx.Warn("BLOCKSTORE", "Missing block for indexed height", height)
			continue
		}
		blocks = append(blocks, record)
	}
	return blocks, nil
}

func (s *GenericBlockStore) MustClose() {
	err := s.provider.Close()
	if err != nil {
		logx.Error("BLOCKSTORE", "Failed to close db provider:", err.Error())
	}
}
