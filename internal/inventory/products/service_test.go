package products

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/db/dbtest"
	"toolcrib-backend/internal/platform/events"
	"toolcrib-backend/internal/platform/paging"
)

func ptr[T any](v T) *T { return &v }

type countingRecorder struct {
	mu    sync.Mutex
	outs  int
	units int
}

func (r *countingRecorder) StockOut(qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outs++
	r.units += qty
}

type capturePublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads []any
}

func (p *capturePublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

type fixture struct {
	conn  *db.Conn
	svc   *Service
	rec   *countingRecorder
	pub   *capturePublisher
	admin int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	rec := &countingRecorder{}
	pub := &capturePublisher{}
	return &fixture{
		conn:  conn,
		svc:   NewService(conn, WithRecorder(rec), WithPublisher(pub)),
		rec:   rec,
		pub:   pub,
		admin: dbtest.SeedUser(t, conn, "1", "Administrator"),
	}
}

func withdrawal(productID int64, qty int) CreateStockOutRequest {
	return CreateStockOutRequest{ProductID: productID, Quantity: qty, Responsible: "Carla", Reason: "Mantenimiento"}
}

func TestCreateProduct(t *testing.T) {
	s := NewService(dbtest.Open(t))
	ctx := context.Background()

	res, err := s.Create(ctx, CreateProductRequest{Code: " GL-1 ", Name: "Gloves", Responsible: "Store", Quantity: 40})
	require.NoError(t, err)
	require.Equal(t, "GL-1", res.Code)
	require.Equal(t, 40, res.Quantity)

	_, err = s.Create(ctx, CreateProductRequest{Code: "GL-1", Name: "Other", Responsible: "Store"})
	require.ErrorIs(t, err, ErrDuplicateCode)
	require.Equal(t, 400, apperr.HTTPStatus(err))

	_, err = s.Create(ctx, CreateProductRequest{Code: "  ", Name: "x", Responsible: "y"})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})

	_, err = s.Create(ctx, CreateProductRequest{Code: "N-1", Name: "x", Responsible: "y", Quantity: -1})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})
}

func TestUpdateProduct(t *testing.T) {
	conn := dbtest.Open(t)
	s := NewService(conn)
	ctx := context.Background()
	id := dbtest.SeedProduct(t, conn, "TP-1", "Tape", 3)
	dbtest.SeedProduct(t, conn, "TP-2", "Tape wide", 3)

	res, err := s.Update(ctx, id, UpdateProductRequest{Quantity: ptr(20), Name: ptr("Duct tape")})
	require.NoError(t, err)
	require.Equal(t, 20, res.Quantity)
	require.Equal(t, "Duct tape", res.Name)
	require.Equal(t, "TP-1", res.Code)

	_, err = s.Update(ctx, id, UpdateProductRequest{Code: ptr("TP-2")})
	require.ErrorIs(t, err, ErrDuplicateCode)

	_, err = s.Update(ctx, id, UpdateProductRequest{Quantity: ptr(-5)})
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})
	require.Equal(t, 20, dbtest.ProductQuantity(t, conn, id))

	_, err = s.Update(ctx, 999, UpdateProductRequest{Name: ptr("x")})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	used := dbtest.SeedProduct(t, f.conn, "GL-1", "Gloves", 5)
	unused := dbtest.SeedProduct(t, f.conn, "GL-2", "Gloves XL", 5)

	_, err := f.svc.RecordStockOut(ctx, f.admin, withdrawal(used, 1))
	require.NoError(t, err)

	err = f.svc.Delete(ctx, used)
	require.ErrorIs(t, err, ErrProductReferenced)
	require.Equal(t, 400, apperr.HTTPStatus(err))
	_, err = f.svc.Get(ctx, used)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, unused))
	_, err = f.svc.Get(ctx, unused)
	require.ErrorIs(t, err, ErrProductNotFound)

	require.ErrorIs(t, f.svc.Delete(ctx, unused), ErrProductNotFound)
}

func TestRecordStockOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := dbtest.SeedProduct(t, f.conn, "GL-1", "Gloves", 10)

	res, err := f.svc.RecordStockOut(ctx, f.admin, withdrawal(id, 3))
	require.NoError(t, err)
	require.Equal(t, id, res.ProductID)
	require.Equal(t, "GL-1", res.ProductCode)
	require.Equal(t, "Gloves", res.ProductName)
	require.Equal(t, 3, res.Quantity)
	require.Equal(t, f.admin, res.RecordedBy)
	require.Equal(t, "User 1", res.RecordedByName)
	require.Equal(t, 7, dbtest.ProductQuantity(t, f.conn, id))

	require.Equal(t, 1, f.rec.outs)
	require.Equal(t, 3, f.rec.units)
	require.Equal(t, []string{events.StockOut}, f.pub.keys)
	ev := f.pub.payloads[0].(StockOutEvent)
	require.Equal(t, 7, ev.Remaining)

	got, err := f.svc.GetStockOut(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, res, got)
}

func TestRecordStockOutInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := dbtest.SeedProduct(t, f.conn, "GL-1", "Gloves", 2)

	_, err := f.svc.RecordStockOut(ctx, f.admin, withdrawal(id, 5))
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, 400, apperr.HTTPStatus(err))

	require.Equal(t, 2, dbtest.ProductQuantity(t, f.conn, id))
	list, err := f.svc.ListStockOuts(ctx, 0, paging.Params{})
	require.NoError(t, err)
	require.Empty(t, list.Items)
	require.Zero(t, f.rec.outs)
	require.Empty(t, f.pub.keys)
}

func TestRecordStockOutRollsBackDebit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := dbtest.SeedProduct(t, f.conn, "GL-1", "Gloves", 4)

	// 記録者が存在しないので INSERT が失敗し、減算も巻き戻る
	_, err := f.svc.RecordStockOut(ctx, 9999, withdrawal(id, 3))
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeUnauthenticated})
	require.Equal(t, 4, dbtest.ProductQuantity(t, f.conn, id))

	var n int
	require.NoError(t, f.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock_outs`).Scan(&n))
	require.Zero(t, n)
	require.Empty(t, f.pub.keys)
}

func TestRecordStockOutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := dbtest.SeedProduct(t, f.conn, "GL-1", "Gloves", 4)

	bad := withdrawal(id, 1)
	bad.Reason = "   "
	_, err := f.svc.RecordStockOut(ctx, f.admin, bad)
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})

	_, err = f.svc.RecordStockOut(ctx, f.admin, withdrawal(id, 0))
	require.ErrorIs(t, err, &apperr.APIError{Code: apperr.CodeInvalidArgument})

	_, err = f.svc.RecordStockOut(ctx, f.admin, withdrawal(404, 1))
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Equal(t, 4, dbtest.ProductQuantity(t, f.conn, id))
}

func TestListProductsAndStockOuts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gloves := dbtest.SeedProduct(t, f.conn, "GL-1", "Gloves", 10)
	tape := dbtest.SeedProduct(t, f.conn, "TP_1", "Tape", 10)

	for _, o := range []CreateStockOutRequest{withdrawal(gloves, 1), withdrawal(tape, 2), withdrawal(gloves, 3)} {
		_, err := f.svc.RecordStockOut(ctx, f.admin, o)
		require.NoError(t, err)
	}

	all, err := f.svc.ListStockOuts(ctx, 0, paging.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.Equal(t, int64(3), all.Pagination.Total)
	// 新しい順
	require.Equal(t, 3, all.Items[0].Quantity)

	byProduct, err := f.svc.ListStockOuts(ctx, gloves, paging.Params{})
	require.NoError(t, err)
	require.Len(t, byProduct.Items, 2)
	for _, it := range byProduct.Items {
		require.Equal(t, gloves, it.ProductID)
	}

	_, err = f.svc.ListStockOuts(ctx, 404, paging.Params{})
	require.ErrorIs(t, err, ErrProductNotFound)
	_, err = f.svc.GetStockOut(ctx, 404)
	require.ErrorIs(t, err, ErrStockOutNotFound)

	list, err := f.svc.List(ctx, "_", paging.Params{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "Tape", list.Items[0].Name)

	list, err = f.svc.List(ctx, "", paging.Params{})
	require.NoError(t, err)
	require.Equal(t, int64(2), list.Pagination.Total)
	require.Equal(t, "Gloves", list.Items[0].Name)
}
