package products

import (
	"context"
	"errors"
	"fmt"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
)

var (
	ErrProductNotFound   = apperr.NotFound(apperr.ReasonProductNotFound, "product not found")
	ErrStockOutNotFound  = apperr.NotFound(apperr.ReasonStockOutNotFound, "stock-out not found")
	ErrInsufficientStock = &apperr.APIError{Code: apperr.CodeInsufficientStock, Message: "insufficient stock"}
	ErrDuplicateCode     = apperr.Conflict(apperr.ReasonDuplicateCode, "product code already exists")
	ErrProductReferenced = apperr.Conflict(apperr.ReasonReferenced, "product is referenced by stock-outs")
)

// Stock は消耗品数量を減らす唯一の経路。呼び出し側の Tx の中で使う。
type Stock struct {
	store *Store
}

func NewStock(store *Store) *Stock { return &Stock{store: store} }

// Debit: quantity -= qty。戻り値は減算後の残数。
func (s *Stock) Debit(ctx context.Context, tx db.DBTX, productID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, apperr.Invalid("quantity must be > 0")
	}
	p, err := s.store.lockProduct(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return 0, err
		}
		return 0, apperr.Internal(err)
	}
	if qty > p.Quantity {
		return 0, ErrInsufficientStock.WithMessage(
			fmt.Sprintf("insufficient stock: requested %d, available %d", qty, p.Quantity))
	}

	// ロックが無い方言でも二重に払い出さないよう WHERE で再確認する
	res, err := tx.ExecContext(ctx, `
UPDATE products SET quantity = quantity - ?
WHERE id = ? AND quantity >= ?`, qty, productID, qty)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Internal(err)
	}
	if aff != 1 {
		return 0, ErrInsufficientStock
	}
	return p.Quantity - qty, nil
}
