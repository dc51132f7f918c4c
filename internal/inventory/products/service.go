// Package products は消耗品（使えば戻らない在庫）と出庫記録を扱う。
// 工具の貸出と違い、出庫は数量を減らすだけで返却はない。
package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/events"
	"toolcrib-backend/internal/platform/paging"
)

var errRecorderGone = apperr.Unauthenticated("user no longer exists")

// Recorder は出庫の計測。metrics.Registry が満たす。
type Recorder interface {
	StockOut(qty int)
}

type nopRecorder struct{}

func (nopRecorder) StockOut(int) {}

type Service struct {
	db      *db.Conn
	store   *Store
	stock   *Stock
	metrics Recorder
	events  events.Publisher
	now     func() time.Time
}

type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.metrics = r } }

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.events = p } }

func NewService(conn *db.Conn, opts ...Option) *Service {
	store := NewStore(conn)
	s := &Service{
		db:      conn,
		store:   store,
		stock:   NewStock(store),
		metrics: nopRecorder{},
		events:  events.Nop{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, in CreateProductRequest) (ProductResponse, error) {
	p := &Product{
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Responsible: strings.TrimSpace(in.Responsible),
		Quantity:    in.Quantity,
		CreatedAt:   s.now(),
	}
	if p.Code == "" || p.Name == "" || p.Responsible == "" {
		return ProductResponse{}, apperr.Invalid("code, name and responsible are required")
	}
	if p.Quantity < 0 {
		return ProductResponse{}, apperr.Invalid("quantity must be >= 0")
	}
	if err := s.store.Insert(ctx, p); err != nil {
		if db.IsUniqueViolation(err) {
			return ProductResponse{}, ErrDuplicateCode
		}
		return ProductResponse{}, apperr.Internal(err)
	}
	return toResponse(p), nil
}

func (s *Service) Get(ctx context.Context, id int64) (ProductResponse, error) {
	p, err := s.store.Get(ctx, s.db, id)
	if err != nil {
		return ProductResponse{}, wrap(err)
	}
	return toResponse(p), nil
}

func (s *Service) List(ctx context.Context, search string, p paging.Params) (ListProductsResult, error) {
	p = p.Normalize()
	rows, total, err := s.store.List(ctx, search, p)
	if err != nil {
		return ListProductsResult{}, apperr.Internal(err)
	}
	items := make([]ProductResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toResponse(&rows[i]))
	}
	return ListProductsResult{Items: items, Pagination: paging.NewMeta(total, p)}, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateProductRequest) (ProductResponse, error) {
	var out *Product
	err := db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.store.lockProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Code != nil {
			if p.Code = strings.TrimSpace(*in.Code); p.Code == "" {
				return apperr.Invalid("code must not be empty")
			}
		}
		if in.Name != nil {
			if p.Name = strings.TrimSpace(*in.Name); p.Name == "" {
				return apperr.Invalid("name must not be empty")
			}
		}
		if in.Responsible != nil {
			if p.Responsible = strings.TrimSpace(*in.Responsible); p.Responsible == "" {
				return apperr.Invalid("responsible must not be empty")
			}
		}
		if in.Quantity != nil {
			if *in.Quantity < 0 {
				return apperr.Invalid("quantity must be >= 0")
			}
			p.Quantity = *in.Quantity
		}
		if err := s.store.update(ctx, tx, p); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateCode
			}
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return ProductResponse{}, wrap(err)
	}
	return toResponse(out), nil
}

// Delete: 出庫履歴がある商品は消さない
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := s.store.lockProduct(ctx, tx, id); err != nil {
			return err
		}
		if err := s.store.delete(ctx, tx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return ErrProductReferenced
			}
			return err
		}
		return nil
	})
	return wrap(err)
}

// RecordStockOut は在庫の減算と出庫記録を1つの Tx で行う。
// どちらかが失敗すれば両方なかったことになる。
func (s *Service) RecordStockOut(ctx context.Context, actor int64, in CreateStockOutRequest) (StockOutResponse, error) {
	responsible := strings.TrimSpace(in.Responsible)
	reason := strings.TrimSpace(in.Reason)
	if responsible == "" || reason == "" {
		return StockOutResponse{}, apperr.Invalid("responsible and reason are required")
	}
	if in.Quantity <= 0 {
		return StockOutResponse{}, apperr.Invalid("quantity must be > 0")
	}

	var (
		out       *StockOut
		remaining int
	)
	err := db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if remaining, err = s.stock.Debit(ctx, tx, in.ProductID, in.Quantity); err != nil {
			return err
		}
		o := &StockOut{
			ProductID:   in.ProductID,
			Quantity:    in.Quantity,
			Responsible: responsible,
			Reason:      reason,
			RecordedBy:  actor,
			CreatedAt:   s.now(),
		}
		if err := s.store.insertStockOut(ctx, tx, o); err != nil {
			if db.IsForeignKeyViolation(err) {
				return errRecorderGone
			}
			return err
		}
		out, err = s.store.GetStockOut(ctx, tx, o.ID)
		return err
	})
	if err != nil {
		return StockOutResponse{}, wrap(err)
	}

	s.metrics.StockOut(out.Quantity)
	events.PublishLogged(ctx, s.events, events.StockOut, StockOutEvent{
		StockOutID: out.ID,
		ProductID:  out.ProductID,
		Quantity:   out.Quantity,
		Remaining:  remaining,
		ActorID:    actor,
		OccurredAt: s.now(),
	})
	return toStockOutResponse(out), nil
}

func (s *Service) GetStockOut(ctx context.Context, id int64) (StockOutResponse, error) {
	o, err := s.store.GetStockOut(ctx, s.db, id)
	if err != nil {
		return StockOutResponse{}, wrap(err)
	}
	return toStockOutResponse(o), nil
}

// ListStockOuts は productID > 0 のとき、その商品が存在しなければ NOT_FOUND。
func (s *Service) ListStockOuts(ctx context.Context, productID int64, p paging.Params) (ListStockOutsResult, error) {
	p = p.Normalize()
	if productID > 0 {
		if _, err := s.store.Get(ctx, s.db, productID); err != nil {
			return ListStockOutsResult{}, wrap(err)
		}
	}
	rows, total, err := s.store.ListStockOuts(ctx, productID, p)
	if err != nil {
		return ListStockOutsResult{}, apperr.Internal(err)
	}
	items := make([]StockOutResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toStockOutResponse(&rows[i]))
	}
	return ListStockOutsResult{Items: items, Pagination: paging.NewMeta(total, p)}, nil
}

// wrap: APIError 以外は INTERNAL に包む
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var api *apperr.APIError
	if errors.As(err, &api) {
		return err
	}
	return apperr.Internal(err)
}
