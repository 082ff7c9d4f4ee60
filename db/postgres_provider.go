package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/tinycoin/tinycoin/logx"
)

// PostgresProvider implements DatabaseProvider on top of a single
// key-value table, so the same store layer runs unchanged against SQL
type PostgresProvider struct {
	db *sql.DB
}

const createKVTableSQL = `
CREATE TABLE IF NOT EXISTS ledger_kv (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
);
`

// NewPostgresProvider connects to PostgreSQL with a retry mechanism and
// ensures the kv table exists
func NewPostgresProvider(dsn string) (DatabaseProvider, error) {
	const maxRetries = 5
	const retryDelay = 3 * time.Second

	var db *sql.DB
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			logx.Warn("POSTGRES", "Retrying connection (attempt", attempt+1, "of", maxRetries, ") after error:", lastErr)
			time.Sleep(retryDelay)
		}

		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			lastErr = fmt.Errorf("failed to open database connection: %w", err)
			continue
		}

		if err := db.Ping(); err != nil {
			db.Close()
			lastErr = fmt.Errorf("failed to ping database: %w", err)
			continue
		}

		if _, err := db.Exec(createKVTableSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create kv table: %w", err)
		}

		logx.Info("POSTGRES", "Database connection established")
		return &PostgresProvider{db: db}, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
}

// Get retrieves a value by key
func (p *PostgresProvider) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(`SELECT value FROM ledger_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// GetBatch retrieves multiple values in a single query
func (p *PostgresProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	rows, err := p.db.Query(`SELECT key, value FROM ledger_kv WHERE key = ANY($1)`, pq.ByteaArray(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[string(key)] = value
	}
	return result, rows.Err()
}

// Put stores a key-value pair
func (p *PostgresProvider) Put(key, value []byte) error {
	_, err := p.db.Exec(
		`INSERT INTO ledger_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	return err
}

// Delete removes a key-value pair
func (p *PostgresProvider) Delete(key []byte) error {
	_, err := p.db.Exec(`DELETE FROM ledger_kv WHERE key = $1`, key)
	return err
}

// Has checks if a key exists
func (p *PostgresProvider) Has(key []byte) (bool, error) {
	var exists bool
	err := p.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM ledger_kv WHERE key = $1)`, key).Scan(&exists)
	return exists, err
}

// Close closes the database connection
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}

// Batch returns a new batch for atomic operations
func (p *PostgresProvider) Batch() DatabaseBatch {
	return &PostgresBatch{db: p.db}
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, or nil when no such bound exists
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// IteratePrefix iterates over all key-value pairs with the given prefix
// in ascending key order
func (p *PostgresProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	var rows *sql.Rows
	var err error

	upper := prefixUpperBound(prefix)
	if upper != nil {
		rows, err = p.db.Query(
			`SELECT key, value FROM ledger_kv WHERE key >= $1 AND key < $2 ORDER BY key`,
			prefix, upper,
		)
	} else {
		rows, err = p.db.Query(
			`SELECT key, value FROM ledger_kv WHERE key >= $1 ORDER BY key`,
			prefix,
		)
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if !callback(key, value) {
			return nil
		}
	}
	return rows.Err()
}

// pgOp is a single staged write
type pgOp struct {
	key    []byte
	value  []byte
	delete bool
}

// PostgresBatch implements DatabaseBatch for PostgreSQL. Operations are
// staged in memory and applied inside one SQL transaction on Write.
type PostgresBatch struct {
	db  *sql.DB
	ops []pgOp
}

// Put adds a key-value pair to the batch
func (b *PostgresBatch) Put(key, value []byte) {
	b.ops = append(b.ops, pgOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete adds a deletion to the batch
func (b *PostgresBatch) Delete(key []byte) {
	b.ops = append(b.ops, pgOp{
		key:    append([]byte(nil), key...),
		delete: true,
	})
}

// Write commits all operations in the batch
func (b *PostgresBatch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range b.ops {
		if op.delete {
			if _, err := tx.Exec(`DELETE FROM ledger_kv WHERE key = $1`, op.key); err != nil {
				return err
			}
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO ledger_kv (key, value) VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			op.key, op.value,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Reset clears the batch
func (b *PostgresBatch) Reset() {
	b.ops = b.ops[:0]
}

// Close releases batch resources
func (b *PostgresBatch) Close() error {
	b.ops = nil
	return nil
}
