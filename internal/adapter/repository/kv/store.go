// Package kv stores tabs in any key-value store.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when a key has no value.
var ErrNotFound = errors.New("key not found")

// Op is a single write in a batch. A nil Value deletes the key.
type Op struct {
	Key   string
	Value []byte
}

// Put returns an op that writes value at key.
func Put(key string, value []byte) Op {
	return Op{Key: key, Value: value}
}

// Delete returns an op that removes key.
func Delete(key string) Op {
	return Op{Key: key}
}

// IsDelete reports whether the op removes its key.
func (o Op) IsDelete() bool {
	return o.Value == nil
}

// Store is a byte-oriented key-value store. WriteBatch applies all ops or
// none of them.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	WriteBatch(ctx context.Context, ops []Op) error
}
