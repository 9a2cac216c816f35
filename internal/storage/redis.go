package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/domain"
	"github.com/facetophone/security-service/internal/pkg/logger"
)

// RedisStore is a Redis-backed Store. Documents live in one hash per
// collection, sealed with the same codec as the in-memory backend;
// exact-match indexes are sets of keys and insertion order is a list.
// Redis only ever sees ciphertext.
type RedisStore struct {
	client *redis.Client
	codec  *Codec
	log    *logger.Logger
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg *config.RedisConfig, codec *Codec, log *logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		codec:  codec,
		log:    log.Named("redis_store"),
		prefix: cfg.KeyPrefix,
	}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) dataKey(collection string) string {
	return s.prefix + collection
}

func (s *RedisStore) metaKey(collection string) string {
	return s.prefix + collection + ":meta"
}

func (s *RedisStore) orderKey(collection string) string {
	return s.prefix + collection + ":keys"
}

func (s *RedisStore) indexKey(collection, index, value string) string {
	return s.prefix + collection + ":idx:" + index + ":" + value
}

// Put seals and stores a record. All writes for one record go through a
// single transactional pipeline so the record is persisted whole or not
// at all.
func (s *RedisStore) Put(ctx context.Context, collection, key string, value any, indexes map[string]string) error {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", collection, err)
	}
	sealed, err := s.codec.Seal(plaintext)
	if err != nil {
		return &domain.EncryptionError{Collection: collection, Err: err}
	}

	var oldIndexes map[string]string
	oldMeta, err := s.client.HGet(ctx, s.metaKey(collection), key).Result()
	exists := err == nil
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read %s index metadata: %w", collection, err)
	}
	if exists {
		if err := json.Unmarshal([]byte(oldMeta), &oldIndexes); err != nil {
			return fmt.Errorf("corrupt %s index metadata: %w", collection, err)
		}
	}

	meta, err := json.Marshal(indexes)
	if err != nil {
		return fmt.Errorf("marshal %s index metadata: %w", collection, err)
	}

	pipe := s.client.TxPipeline()
	if exists {
		for name, value := range oldIndexes {
			pipe.SRem(ctx, s.indexKey(collection, name, value), key)
		}
	} else {
		pipe.RPush(ctx, s.orderKey(collection), key)
	}
	pipe.HSet(ctx, s.dataKey(collection), key, sealed)
	pipe.HSet(ctx, s.metaKey(collection), key, meta)
	for name, value := range indexes {
		pipe.SAdd(ctx, s.indexKey(collection, name, value), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write %s record: %w", collection, err)
	}
	return nil
}

// Get opens the record at (collection, key) into out.
func (s *RedisStore) Get(ctx context.Context, collection, key string, out any) error {
	sealed, err := s.client.HGet(ctx, s.dataKey(collection), key).Bytes()
	if err == redis.Nil {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s record: %w", collection, err)
	}

	plaintext, err := s.codec.Open(sealed)
	if err != nil {
		return &domain.DecryptionError{Collection: collection, Err: err}
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("unmarshal %s record: %w", collection, err)
	}
	return nil
}

// GetAllByIndex opens every record whose index matches value, in
// insertion order.
func (s *RedisStore) GetAllByIndex(ctx context.Context, collection, index, value string) ([]json.RawMessage, error) {
	members, err := s.client.SMembers(ctx, s.indexKey(collection, index, value)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s index: %w", collection, err)
	}
	if len(members) == 0 {
		return []json.RawMessage{}, nil
	}
	matched := make(map[string]bool, len(members))
	for _, m := range members {
		matched[m] = true
	}

	ordered, err := s.client.LRange(ctx, s.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s key order: %w", collection, err)
	}

	keys := make([]string, 0, len(members))
	for _, k := range ordered {
		if matched[k] {
			keys = append(keys, k)
		}
	}
	return s.openKeys(ctx, collection, keys)
}

// GetAll opens every record in the collection, in insertion order.
func (s *RedisStore) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	ordered, err := s.client.LRange(ctx, s.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s key order: %w", collection, err)
	}
	return s.openKeys(ctx, collection, ordered)
}

// Delete removes a record and its index entries.
func (s *RedisStore) Delete(ctx context.Context, collection, key string) error {
	oldMeta, err := s.client.HGet(ctx, s.metaKey(collection), key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s index metadata: %w", collection, err)
	}
	var indexes map[string]string
	if err := json.Unmarshal([]byte(oldMeta), &indexes); err != nil {
		return fmt.Errorf("corrupt %s index metadata: %w", collection, err)
	}

	pipe := s.client.TxPipeline()
	for name, value := range indexes {
		pipe.SRem(ctx, s.indexKey(collection, name, value), key)
	}
	pipe.HDel(ctx, s.dataKey(collection), key)
	pipe.HDel(ctx, s.metaKey(collection), key)
	pipe.LRem(ctx, s.orderKey(collection), 1, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %s record: %w", collection, err)
	}
	return nil
}

func (s *RedisStore) openKeys(ctx context.Context, collection string, keys []string) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.client.HMGet(ctx, s.dataKey(collection), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s records: %w", collection, err)
	}
	for _, v := range values {
		sealed, ok := v.(string)
		if !ok {
			continue
		}
		plaintext, err := s.codec.Open([]byte(sealed))
		if err != nil {
			return nil, &domain.DecryptionError{Collection: collection, Err: err}
		}
		out = append(out, json.RawMessage(plaintext))
	}
	return out, nil
}
