package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-gateway/repositories"
	"go.uber.org/zap"
)

func newMockTransactionManager(t *testing.T) (repositories.TransactionManager, *DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &DB{DB: mockDB, logger: zap.NewNop()}
	return NewTransactionManager(db, zap.NewNop()), db, mock
}

func TestInTransaction_CommitsOnSuccess(t *testing.T) {
	tm, _, mock := newMockTransactionManager(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO recommendations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
		pgTx, ok := tx.(*Transaction)
		require.True(t, ok)
		_, err := pgTx.GetTx().ExecContext(ctx, "INSERT INTO recommendations (id) VALUES ($1)", "x")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTransaction_RollsBackOnError(t *testing.T) {
	tm, _, mock := newMockTransactionManager(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExecutor(t *testing.T) {
	tm, db, mock := newMockTransactionManager(t)

	t.Run("no transaction returns the pool", func(t *testing.T) {
		executor := GetExecutor(context.Background(), db)
		assert.Equal(t, db.DB, executor)
	})

	t.Run("transaction in context wins", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			executor := GetExecutor(ctx, db)
			assert.NotEqual(t, db.DB, executor)
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
