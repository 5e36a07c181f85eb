package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type recordingTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *recordingTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *recordingTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type stubBeginner struct {
	tx  *recordingTx
	err error
}

func (b *stubBeginner) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	tx := &recordingTx{}
	err := WithTx(context.Background(), &stubBeginner{tx: tx}, func(pgx.Tx) error {
		return nil
	})
	require.NoError(t, err)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	boom := errors.New("boom")
	tx := &recordingTx{}
	err := WithTx(context.Background(), &stubBeginner{tx: tx}, func(pgx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	tx := &recordingTx{}
	require.Panics(t, func() {
		_ = WithTx(context.Background(), &stubBeginner{tx: tx}, func(pgx.Tx) error {
			panic("boom")
		})
	})
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
}

func TestWithTxPropagatesBeginError(t *testing.T) {
	begin := errors.New("no connection")
	err := WithTx(context.Background(), &stubBeginner{err: begin}, func(pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, begin)
}
