package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/iho/coster/internal/adapter/repository/kv"
)

// Store implements kv.Store using Redis strings.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore creates a new Store. Every key is stored under prefix.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores a value without expiry.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// WriteBatch applies ops inside MULTI/EXEC.
func (s *Store) WriteBatch(ctx context.Context, ops []kv.Op) error {
	if len(ops) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			if op.IsDelete() {
				pipe.Del(ctx, s.prefix+op.Key)
				continue
			}
			pipe.Set(ctx, s.prefix+op.Key, op.Value, 0)
		}
		return nil
	})
	return err
}
