package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/coster/internal/adapter/repository/kv"
)

const (
	selectRecordSQL = `SELECT value FROM kv_records WHERE key = $1`
	upsertRecordSQL = `INSERT INTO kv_records (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteRecordSQL = `DELETE FROM kv_records WHERE key = $1`
)

// Store implements kv.Store on the kv_records table. Batches run in one
// transaction and are retried on deadlocks and serialization failures.
type Store struct {
	pool      pgxPool
	txManager *TxManager
	retrier   *Retrier
}

// NewStore creates a new Store.
func NewStore(pool *pgxpool.Pool, retrier *Retrier) *Store {
	return newStoreWithPool(pool, retrier)
}

func newStoreWithPool(pool pgxPool, retrier *Retrier) *Store {
	return &Store{
		pool:      pool,
		txManager: newTxManagerWithPool(pool),
		retrier:   retrier,
	}
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.pool.QueryRow(ctx, selectRecordSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Put upserts a value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.WriteBatch(ctx, []kv.Op{kv.Put(key, value)})
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.WriteBatch(ctx, []kv.Op{kv.Delete(key)})
}

// WriteBatch applies ops in a single transaction.
func (s *Store) WriteBatch(ctx context.Context, ops []kv.Op) error {
	if len(ops) == 0 {
		return nil
	}

	return s.retrier.Retry(ctx, func() error {
		return s.writeBatch(ctx, ops)
	})
}

func (s *Store) writeBatch(ctx context.Context, ops []kv.Op) error {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, op := range ops {
		if op.IsDelete() {
			_, err = tx.Exec(ctx, deleteRecordSQL, op.Key)
		} else {
			_, err = tx.Exec(ctx, upsertRecordSQL, op.Key, op.Value)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", op.Key, err)
		}
	}

	return tx.Commit(ctx)
}
