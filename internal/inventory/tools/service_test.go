package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db/dbtest"
	"toolcrib-backend/internal/platform/paging"
)

func ptr[T any](v T) *T { return &v }

func TestCreateDerivesAvailable(t *testing.T) {
	s := NewService(dbtest.Open(t))
	ctx := context.Background()

	res, err := s.Create(ctx, CreateToolRequest{Name: "Hammer", Responsible: "Shop", QuantityTotal: 10})
	require.NoError(t, err)
	require.Equal(t, 10, res.QuantityAvailable)
	require.Zero(t, res.QuantityOnLoan)
	require.Nil(t, res.Code)

	res, err = s.Create(ctx, CreateToolRequest{Name: "Drill", Responsible: "Shop", QuantityTotal: 5, QuantityOnLoan: ptr(2), Code: ptr("DR-1")})
	require.NoError(t, err)
	require.Equal(t, 3, res.QuantityAvailable)
	require.Equal(t, 2, res.QuantityOnLoan)
	require.Equal(t, "DR-1", *res.Code)
}

func TestCreateValidation(t *testing.T) {
	s := NewService(dbtest.Open(t))
	ctx := context.Background()

	_, err := s.Create(ctx, CreateToolRequest{Name: "x", Responsible: "y", QuantityTotal: 2, QuantityOnLoan: ptr(3)})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})

	_, err = s.Create(ctx, CreateToolRequest{Name: "  ", Responsible: "y", QuantityTotal: 2})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})

	_, err = s.Create(ctx, CreateToolRequest{Name: "a", Responsible: "y", QuantityTotal: 1, Code: ptr("C-1")})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateToolRequest{Name: "b", Responsible: "y", QuantityTotal: 1, Code: ptr("C-1")})
	require.ErrorIs(t, err, ErrDuplicateCode)

	// 空コードは NULL 扱いなので重複しない
	_, err = s.Create(ctx, CreateToolRequest{Name: "c", Responsible: "y", QuantityTotal: 1, Code: ptr(" ")})
	require.NoError(t, err)
	_, err = s.Create(ctx, CreateToolRequest{Name: "d", Responsible: "y", QuantityTotal: 1, Code: ptr("")})
	require.NoError(t, err)
}

func TestUpdateKeepsConservation(t *testing.T) {
	conn := dbtest.Open(t)
	s := NewService(conn)
	ctx := context.Background()
	id := dbtest.SeedTool(t, conn, "Grinder", 10, 4)

	res, err := s.Update(ctx, id, UpdateToolRequest{QuantityTotal: ptr(12), Name: ptr("Angle grinder")})
	require.NoError(t, err)
	require.Equal(t, 12, res.QuantityTotal)
	require.Equal(t, 8, res.QuantityAvailable)
	require.Equal(t, 4, res.QuantityOnLoan)
	require.Equal(t, "Angle grinder", res.Name)

	_, err = s.Update(ctx, id, UpdateToolRequest{QuantityTotal: ptr(3)})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})
	total, avail, onLoan := dbtest.Counts(t, conn, id)
	require.Equal(t, [3]int{12, 8, 4}, [3]int{total, avail, onLoan})

	_, err = s.Update(ctx, 999, UpdateToolRequest{Name: ptr("x")})
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestDeleteRules(t *testing.T) {
	conn := dbtest.Open(t)
	s := NewService(conn)
	ctx := context.Background()

	busy := dbtest.SeedTool(t, conn, "Busy", 3, 1)
	require.ErrorIs(t, s.Delete(ctx, busy), ErrHasOutstandingLoans)
	_, err := s.Get(ctx, busy)
	require.NoError(t, err)

	free := dbtest.SeedTool(t, conn, "Free", 3, 0)
	require.NoError(t, s.Delete(ctx, free))
	_, err = s.Get(ctx, free)
	require.ErrorIs(t, err, ErrToolNotFound)
	require.ErrorIs(t, s.Delete(ctx, free), ErrToolNotFound)

	// 返却済みの履歴が残る工具は消せない
	hist := dbtest.SeedTool(t, conn, "History", 1, 0)
	uid := dbtest.SeedUser(t, conn, "900", "Administrator")
	_, err = conn.ExecContext(ctx, `
INSERT INTO loans (ticket_number, tool_id, quantity, responsible, usage_location, issued_by, status, created_at, returned_at)
VALUES ('TICKET-20240101-0001', ?, 1, 'r', 'u', ?, 'Returned', ?, ?)`, hist, uid, time.Now().UTC(), time.Now().UTC())
	require.NoError(t, err)
	require.ErrorIs(t, s.Delete(ctx, hist), ErrToolReferenced)
}

func TestListSearchAndPaging(t *testing.T) {
	conn := dbtest.Open(t)
	s := NewService(conn)
	ctx := context.Background()
	for _, n := range []string{"Hammer", "Hand saw", "Drill", "Level"} {
		dbtest.SeedTool(t, conn, n, 1, 0)
	}

	res, err := s.List(ctx, "Ha", paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, "Hammer", res.Items[0].Name)

	res, err = s.List(ctx, "", paging.Params{Page: 2, Limit: 3})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, int64(4), res.Pagination.Total)
	require.Equal(t, int64(2), res.Pagination.Pages)

	// 入力の _ と % はワイルドカードにならない
	dbtest.SeedTool(t, conn, "Bit_set", 1, 0)
	res, err = s.List(ctx, "_", paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, "Bit_set", res.Items[0].Name)

	res, err = s.List(ctx, "%", paging.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Empty(t, res.Items)
}
