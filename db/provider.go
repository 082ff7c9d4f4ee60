package db

// DatabaseProvider abstracts the low-level document database operations.
// Stores work against this interface without knowing which backend is
// configured underneath.
type DatabaseProvider interface {
	// Get retrieves a value by key. Returns (nil, nil) when the key is absent.
	Get(key []byte) ([]byte, error)

	// GetBatch retrieves multiple values by keys in a single operation.
	// Absent keys are omitted from the result map.
	GetBatch(keys [][]byte) (map[string][]byte, error)

	// Put stores a key-value pair
	Put(key, value []byte) error

	// Delete removes a key-value pair
	Delete(key []byte) error

	// Has checks if a key exists
	Has(key []byte) (bool, error)

	// Close closes the database connection
	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// IterableProvider extends DatabaseProvider with prefix iteration
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix visits all key-value pairs with the given prefix in
	// ascending key order. The callback returns false to stop iteration.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch collects writes that are committed atomically
type DatabaseBatch interface {
	// Put adds a key-value pair to the batch
	Put(key, value []byte)

	// Delete adds a deletion to the batch
	Delete(key []byte)

	// Write commits all operations in the batch
	Write() error

	// Reset clears the batch
	Reset()

	// Close releases batch resources
	Close() error
}
