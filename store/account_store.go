package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tinycoin/tinycoin/db"
	"github.com/tinycoin/tinycoin/jsonx"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/types"
)

// AccountStore is responsible for persisting operations of accounts
type AccountStore interface {
	Store(account *types.Account) error
	StoreBatch(accounts []*types.Account) error
	StoreToBatch(batch db.DatabaseBatch, account *types.Account) error
	GetByAddr(addr string) (*types.Account, error)
	GetBatch(addrs []string) (map[string]*types.Account, error)
	ExistsByAddr(addr string) (bool, error)
	All() ([]*types.Account, error)
	MustClose()
}

type GenericAccountStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

func NewGenericAccountStore(dbProvider db.DatabaseProvider) (*GenericAccountStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericAccountStore{
		dbProvider: dbProvider,
	}, nil
}

func (as *GenericAccountStore) Store(account *types.Account) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	accountData, err := jsonx.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	err = as.dbProvider.Put(as.getDbKey(account.Address), accountData)
	if err != nil {
		return fmt.Errorf("failed to write account to db: %w", err)
	}

	return nil
}

func (as *GenericAccountStore) StoreBatch(accounts []*types.Account) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	batch := as.dbProvider.Batch()
	defer batch.Close()

	for _, account := range accounts {
		accountData, err := jsonx.Marshal(account)
		if err != nil {
			return fmt.Errorf("failed to marshal account: %w", err)
		}
		batch.Put(as.getDbKey(account.Address), accountData)
	}

	err := batch.Write()
	if err != nil {
		return fmt.Errorf("failed to write batch of accounts to database: %w", err)
	}

	return nil
}

// StoreToBatch stages the account document into the given batch without
// touching the database. The caller commits the batch.
func (as *GenericAccountStore) StoreToBatch(batch db.DatabaseBatch, account *types.Account) error {
	accountData, err := jsonx.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	batch.Put(as.getDbKey(account.Address), accountData)
	return nil
}

// GetByAddr returns account instance from db, return both nil if not exist
func (as *GenericAccountStore) GetByAddr(addr string) (*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	data, err := as.dbProvider.Get(as.getDbKey(addr))
	if err != nil {
		return nil, fmt.Errorf("could not get account %s from db: %w", addr, err)
	}

	// Account doesn't exist
	if data == nil {
		return nil, nil
	}

	var acc types.Account
	if err := jsonx.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account %s: %w", addr, err)
	}
	return &acc, nil
}

// GetBatch retrieves multiple accounts by addresses. Missing accounts return as nil entries.
func (as *GenericAccountStore) GetBatch(addrs []string) (map[string]*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	result := make(map[string]*types.Account, len(addrs))
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		data, err := as.dbProvider.Get(as.getDbKey(addr))
		if err != nil {
			return nil, fmt.Errorf("could not get account %s from db: %w", addr, err)
		}
		if data == nil {
			result[addr] = nil
			continue
		}
		var acc types.Account
		if err := jsonx.Unmarshal(data, &acc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account %s: %w", addr, err)
		}
		result[addr] = &acc
	}
	return result, nil
}

func (as *GenericAccountStore) ExistsByAddr(addr string) (bool, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	return as.dbProvider.Has(as.getDbKey(addr))
}

// All returns every stored account ordered by address. It needs a
// provider that supports prefix iteration.
func (as *GenericAccountStore) All() ([]*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	iterable, ok := as.dbProvider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("provider does not support iteration")
	}

	var accounts []*types.Account
	var decodeErr error
	err := iterable.IteratePrefix([]byte(PrefixAccount), func(key, value []byte) bool {
		var acc types.Account
		if err := jsonx.Unmarshal(value, &acc); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal account at %s: %w", key, err)
			return false
		}
		accounts = append(accounts, &acc)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	// redis SCAN yields keys unordered
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Address < accounts[j].Address
	})
	return accounts, nil
}

func (as *GenericAccountStore) MustClose() {
	err := as.dbProvider.Close()
	if err != nil {
		logx.Error("ACCOUNT_STORE", "Failed to close db provider:", err.Error())
	}
}

func (as *GenericAccountStore) getDbKey(addr string) []byte {
	return []byte(PrefixAccount + addr)
}
