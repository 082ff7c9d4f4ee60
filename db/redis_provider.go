package db

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/tinycoin/tinycoin/logx"
)

// RedisProvider implements DatabaseProvider for Redis
type RedisProvider struct {
	client *redis.Client
	ctx    context.Context
}

// convertKeyToHumanReadable rewrites binary block keys so they show up
// readable in redis-cli. Block keys carry an 8-byte big-endian height
// after the prefix.
func convertKeyToHumanReadable(key []byte) string {
	keyStr := string(key)

	if strings.HasPrefix(keyStr, "block:") {
		binaryPart := key[len("block:"):]
		if len(binaryPart) == 8 {
			height := binary.BigEndian.Uint64(binaryPart)
			return fmt.Sprintf("block:%d", height)
		}
	}

	return keyStr
}

// NewRedisProvider creates a new Redis provider
func NewRedisProvider(address, password string) (DatabaseProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
	})

	ctx := context.Background()

	// Test connection
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProvider{
		client: client,
		ctx:    ctx,
	}, nil
}

// Get retrieves a value by key
func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	redisKey := convertKeyToHumanReadable(key)
	value, err := p.client.Get(p.ctx, redisKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return []byte(value), nil
}

// GetBatch retrieves multiple values with a single MGET
func (p *RedisProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = convertKeyToHumanReadable(key)
	}

	values, err := p.client.MGet(p.ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected redis value type %T for key %s", v, redisKeys[i])
		}
		result[string(keys[i])] = []byte(s)
	}
	return result, nil
}

// Put stores a key-value pair
func (p *RedisProvider) Put(key, value []byte) error {
	redisKey := convertKeyToHumanReadable(key)
	logx.Debug("REDIS", "Put key:", redisKey, "value length:", len(value))
	return p.client.Set(p.ctx, redisKey, value, 0).Err()
}

// Delete removes a key-value pair
func (p *RedisProvider) Delete(key []byte) error {
	redisKey := convertKeyToHumanReadable(key)
	return p.client.Del(p.ctx, redisKey).Err()
}

// Has checks if a key exists
func (p *RedisProvider) Has(key []byte) (bool, error) {
	redisKey := convertKeyToHumanReadable(key)
	count, err := p.client.Exists(p.ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close closes the database connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Batch returns a new batch for atomic operations
func (p *RedisProvider) Batch() DatabaseBatch {
	return &RedisBatch{
		client: p.client,
		ctx:    p.ctx,
		pipe:   p.client.TxPipeline(),
	}
}

// IteratePrefix implements IterableProvider for Redis using SCAN.
// SCAN returns keys in no particular order, so results are not sorted;
// callers that need ordered iteration should run on an ordered backend.
func (p *RedisProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	pattern := string(prefix) + "*"
	var cursor uint64
	for {
		keys, newCursor, err := p.client.Scan(p.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return err
		}
		cursor = newCursor
		for _, k := range keys {
			val, err := p.client.Get(p.ctx, k).Bytes()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				return err
			}
			if !callback([]byte(k), val) {
				return nil
			}
		}
		if cursor == 0 {
			break
		}
	}
	return nil
}

// RedisBatch implements DatabaseBatch for Redis using MULTI/EXEC pipelining
type RedisBatch struct {
	client *redis.Client
	ctx    context.Context
	pipe   redis.Pipeliner
}

// Put adds a key-value pair to the batch
func (b *RedisBatch) Put(key, value []byte) {
	redisKey := convertKeyToHumanReadable(key)
	b.pipe.Set(b.ctx, redisKey, value, 0)
}

// Delete adds a deletion to the batch
func (b *RedisBatch) Delete(key []byte) {
	redisKey := convertKeyToHumanReadable(key)
	b.pipe.Del(b.ctx, redisKey)
}

// Write commits all operations in the batch
func (b *RedisBatch) Write() error {
	_, err := b.pipe.Exec(b.ctx)
	return err
}

// Reset clears the batch
func (b *RedisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.client.TxPipeline()
}

// Close releases batch resources
func (b *RedisBatch) Close() error {
	b.pipe.Discard()
	return nil
}
