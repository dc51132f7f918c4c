package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/db/dbtest"
)

func inTx(t *testing.T, conn *db.Conn, fn func(ctx context.Context, tx db.DBTX) error) error {
	t.Helper()
	return db.RunInTx(context.Background(), conn.DB, nil, fn)
}

func TestReserveAndRelease(t *testing.T) {
	conn := dbtest.Open(t)
	l := NewLedger(NewStore(conn))
	id := dbtest.SeedTool(t, conn, "wrench", 10, 0)

	require.NoError(t, inTx(t, conn, func(ctx context.Context, tx db.DBTX) error {
		return l.Reserve(ctx, tx, id, 4)
	}))
	total, avail, onLoan := dbtest.Counts(t, conn, id)
	require.Equal(t, [3]int{10, 6, 4}, [3]int{total, avail, onLoan})

	require.NoError(t, inTx(t, conn, func(ctx context.Context, tx db.DBTX) error {
		return l.Release(ctx, tx, id, 4)
	}))
	total, avail, onLoan = dbtest.Counts(t, conn, id)
	require.Equal(t, [3]int{10, 10, 0}, [3]int{total, avail, onLoan})
}

func TestReserveInsufficientLeavesCountersUnchanged(t *testing.T) {
	conn := dbtest.Open(t)
	l := NewLedger(NewStore(conn))
	id := dbtest.SeedTool(t, conn, "ladder", 5, 3)

	err := inTx(t, conn, func(ctx context.Context, tx db.DBTX) error {
		return l.Reserve(ctx, tx, id, 3)
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Contains(t, err.Error(), "available 2")

	total, avail, onLoan := dbtest.Counts(t, conn, id)
	require.Equal(t, [3]int{5, 2, 3}, [3]int{total, avail, onLoan})
}

func TestReserveExactlyAvailable(t *testing.T) {
	conn := dbtest.Open(t)
	l := NewLedger(NewStore(conn))
	id := dbtest.SeedTool(t, conn, "drill", 2, 0)

	require.NoError(t, inTx(t, conn, func(ctx context.Context, tx db.DBTX) error {
		return l.Reserve(ctx, tx, id, 2)
	}))
	_, avail, onLoan := dbtest.Counts(t, conn, id)
	require.Equal(t, 0, avail)
	require.Equal(t, 2, onLoan)
}

func TestReserveUnknownToolAndBadQuantity(t *testing.T) {
	conn := dbtest.Open(t)
	l := NewLedger(NewStore(conn))

	err := inTx(t, conn, func(ctx context.Context, tx db.DBTX) error {
		return l.Reserve(ctx, tx, 404, 1)
	})
	require.ErrorIs(t, err, ErrToolNotFound)

	err = inTx(t, conn, func(ctx context.Context, tx db.DBTX) error {
		return l.Reserve(ctx, tx, 1, 0)
	})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})
}

func TestReleaseBeyondOnLoanIsInternal(t *testing.T) {
	conn := dbtest.Open(t)
	l := NewLedger(NewStore(conn))
	id := dbtest.SeedTool(t, conn, "saw", 3, 1)

	err := inTx(t, conn, func(ctx context.Context, tx db.DBTX) error {
		return l.Release(ctx, tx, id, 2)
	})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInternal})

	total, avail, onLoan := dbtest.Counts(t, conn, id)
	require.Equal(t, [3]int{3, 2, 1}, [3]int{total, avail, onLoan})
}
