package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/coster/internal/adapter/repository/kv"
)

var (
	selectPattern = regexp.QuoteMeta(selectRecordSQL)
	upsertPattern = regexp.QuoteMeta(upsertRecordSQL)
	deletePattern = regexp.QuoteMeta(deleteRecordSQL)
)

func TestStoreGet(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery(selectPattern).
		WithArgs("tabs/a").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"id":"a"}`)))

	store := newStoreWithPool(mockPool, newFastRetrier())
	value, err := store.Get(context.Background(), "tabs/a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(value) != `{"id":"a"}` {
		t.Fatalf("unexpected value %s", value)
	}

	assertExpectations(t, mockPool)
}

func TestStoreGetMissing(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery(selectPattern).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	store := newStoreWithPool(mockPool, newFastRetrier())
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreWriteBatch(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectExec(upsertPattern).WithArgs("tabs/a", []byte("1")).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(deletePattern).WithArgs("tabs/a/users/1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectCommit()

	store := newStoreWithPool(mockPool, newFastRetrier())
	err := store.WriteBatch(context.Background(), []kv.Op{
		kv.Put("tabs/a", []byte("1")),
		kv.Delete("tabs/a/users/1"),
	})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestStoreWriteBatchRollsBackOnError(t *testing.T) {
	mockPool := newMockPool(t)
	execErr := errors.New("disk full")
	mockPool.ExpectBegin()
	mockPool.ExpectExec(upsertPattern).WithArgs("k", []byte("v")).WillReturnError(execErr)
	mockPool.ExpectRollback()

	store := newStoreWithPool(mockPool, newFastRetrier())
	err := store.Put(context.Background(), "k", []byte("v"))
	if !errors.Is(err, execErr) {
		t.Fatalf("expected exec error, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestStoreWriteBatchRetriesDeadlock(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBegin()
	mockPool.ExpectExec(deletePattern).WithArgs("k").WillReturnError(&pgconn.PgError{Code: pgErrDeadlock})
	mockPool.ExpectRollback()
	mockPool.ExpectBegin()
	mockPool.ExpectExec(deletePattern).WithArgs("k").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectCommit()

	store := newStoreWithPool(mockPool, newFastRetrier())
	if err := store.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestStoreWriteBatchEmpty(t *testing.T) {
	mockPool := newMockPool(t)

	store := newStoreWithPool(mockPool, newFastRetrier())
	if err := store.WriteBatch(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}
