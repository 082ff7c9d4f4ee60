package store

import (
	"fmt"

	"github.com/tinycoin/tinycoin/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses the bbolt implementation
	BoltStoreType StoreType = "bolt"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"

	// PostgresStoreType uses the PostgreSQL implementation
	PostgresStoreType StoreType = "postgres"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	Directory string `json:"directory" yaml:"directory"`

	// Addr is the server address (for Redis)
	Addr string `json:"addr" yaml:"addr"`

	// Password is the server password (for Redis)
	Password string `json:"password" yaml:"password"`

	// DSN is the connection string (for PostgreSQL)
	DSN string `json:"dsn" yaml:"dsn"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	switch sc.Type {
	case "":
		return fmt.Errorf("store type cannot be empty")
	case LevelDBStoreType, BoltStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for store type %s", sc.Type)
		}
	case RedisStoreType:
		if sc.Addr == "" {
			return fmt.Errorf("addr cannot be empty for store type %s", sc.Type)
		}
	case PostgresStoreType:
		if sc.DSN == "" {
			return fmt.Errorf("dsn cannot be empty for store type %s", sc.Type)
		}
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
	return nil
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateStoreWithProvider creates store instances sharing one provider.
// The provider is returned as well so callers can batch writes across
// stores.
func (sf *StoreFactory) CreateStoreWithProvider(config *StoreConfig) (AccountStore, TransferStore, BlockStore, db.DatabaseProvider, error) {
	if config == nil {
		return nil, nil, nil, nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	provider, err := sf.CreateProvider(config)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	accStore, err := NewGenericAccountStore(provider)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create account store: %w", err)
	}

	transferStore, err := NewGenericTransferStore(provider)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create transfer store: %w", err)
	}

	blockStore, err := NewGenericBlockStore(provider)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create block store: %w", err)
	}

	return accStore, transferStore, blockStore, provider, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Directory)

	case BoltStoreType:
		return db.NewBoltProvider(config.Directory)

	case RedisStoreType:
		return db.NewRedisProvider(config.Addr, config.Password)

	case PostgresStoreType:
		return db.NewPostgresProvider(config.DSN)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStore creates new store instances using the global factory
func CreateStore(config *StoreConfig) (AccountStore, TransferStore, BlockStore, db.DatabaseProvider, error) {
	return globalFactory.CreateStoreWithProvider(config)
}
