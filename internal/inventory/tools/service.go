package tools

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/paging"
)

type Service struct {
	db     *db.Conn
	store  *Store
	ledger *Ledger
	now    func() time.Time
}

func NewService(conn *db.Conn) *Service {
	store := NewStore(conn)
	return &Service{
		db:     conn,
		store:  store,
		ledger: NewLedger(store),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ledger は貸出側と同じ Store を共有する台帳を返す。
func (s *Service) Ledger() *Ledger { return s.ledger }

func (s *Service) Create(ctx context.Context, in CreateToolRequest) (ToolResponse, error) {
	name := strings.TrimSpace(in.Name)
	responsible := strings.TrimSpace(in.Responsible)
	if name == "" || responsible == "" {
		return ToolResponse{}, apperr.Invalid("name and responsible are required")
	}
	if in.QuantityTotal < 0 {
		return ToolResponse{}, apperr.Invalid("quantity_total must be >= 0")
	}
	onLoan := 0
	if in.QuantityOnLoan != nil {
		onLoan = *in.QuantityOnLoan
	}
	if onLoan < 0 || onLoan > in.QuantityTotal {
		return ToolResponse{}, apperr.Invalid("quantity_on_loan must be between 0 and quantity_total")
	}

	t := &Tool{
		Code:              normalizeCode(in.Code),
		Responsible:       responsible,
		Name:              name,
		QuantityTotal:     in.QuantityTotal,
		QuantityAvailable: in.QuantityTotal - onLoan,
		QuantityOnLoan:    onLoan,
		CreatedAt:         s.now(),
	}
	if err := s.store.Insert(ctx, t); err != nil {
		if db.IsUniqueViolation(err) {
			return ToolResponse{}, ErrDuplicateCode
		}
		return ToolResponse{}, apperr.Internal(err)
	}
	return toResponse(t), nil
}

func (s *Service) Get(ctx context.Context, id int64) (ToolResponse, error) {
	t, err := s.store.Get(ctx, s.db, id)
	if err != nil {
		return ToolResponse{}, wrap(err)
	}
	return toResponse(t), nil
}

func (s *Service) List(ctx context.Context, search string, p paging.Params) (ListToolsResult, error) {
	p = p.Normalize()
	rows, total, err := s.store.List(ctx, search, p)
	if err != nil {
		return ListToolsResult{}, apperr.Internal(err)
	}
	items := make([]ToolResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toResponse(&rows[i]))
	}
	return ListToolsResult{Items: items, Pagination: paging.NewMeta(total, p)}, nil
}

// Update: 総数変更は貸出中数を下回れない。available は total - on_loan で再計算。
func (s *Service) Update(ctx context.Context, id int64, in UpdateToolRequest) (ToolResponse, error) {
	var out *Tool
	err := db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		t, err := s.store.lockTool(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			if t.Name = strings.TrimSpace(*in.Name); t.Name == "" {
				return apperr.Invalid("name must not be empty")
			}
		}
		if in.Responsible != nil {
			if t.Responsible = strings.TrimSpace(*in.Responsible); t.Responsible == "" {
				return apperr.Invalid("responsible must not be empty")
			}
		}
		if in.Code != nil {
			t.Code = normalizeCode(in.Code)
		}
		if in.QuantityTotal != nil {
			if *in.QuantityTotal < t.QuantityOnLoan {
				return apperr.Invalid("quantity_total cannot be less than units on loan")
			}
			t.QuantityTotal = *in.QuantityTotal
			t.QuantityAvailable = t.QuantityTotal - t.QuantityOnLoan
		}
		if err := s.store.update(ctx, tx, t); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateCode
			}
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return ToolResponse{}, wrap(err)
	}
	return toResponse(out), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		t, err := s.store.lockTool(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.QuantityOnLoan > 0 {
			return ErrHasOutstandingLoans
		}
		if err := s.store.delete(ctx, tx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return ErrToolReferenced
			}
			return err
		}
		return nil
	})
	return wrap(err)
}

func normalizeCode(code *string) sql.NullString {
	if code == nil {
		return sql.NullString{}
	}
	v := strings.TrimSpace(*code)
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
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
