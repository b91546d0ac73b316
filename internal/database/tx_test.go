package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Wrap(sqlx.NewDb(db, "postgres"), time.Second), mock
}

func TestRunInTx_CommitsAndSetsLockTimeout(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout = '1500ms'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.RunInTx(context.Background(), TxOptions{LockTimeout: 1500 * time.Millisecond}, func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		_, err := Conn(ctx, d.DB).ExecContext(ctx, "UPDATE applications SET status = 'pending'")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	d, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := d.RunInTx(context.Background(), TxOptions{}, func(context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_NestedCallsReuseOuterTransaction(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := d.RunInTx(context.Background(), TxOptions{}, func(ctx context.Context) error {
		return d.RunInTx(ctx, TxOptions{}, func(inner context.Context) error {
			assert.Equal(t, Conn(ctx, d.DB), Conn(inner, d.DB))
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_CancelledContext(t *testing.T) {
	d, mock := newMockDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := d.RunInTx(ctx, TxOptions{}, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConn_OutsideTransactionUsesDB(t *testing.T) {
	d, _ := newMockDB(t)
	assert.False(t, InTx(context.Background()))
	assert.Equal(t, sqlx.ExtContext(d.DB), Conn(context.Background(), d.DB))
}
