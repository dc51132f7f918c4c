package tools

import (
	"context"
	"errors"
	"fmt"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
)

var (
	ErrToolNotFound        = apperr.NotFound(apperr.ReasonToolNotFound, "tool not found")
	ErrInsufficientStock   = &apperr.APIError{Code: apperr.CodeInsufficientStock, Message: "insufficient stock"}
	ErrHasOutstandingLoans = &apperr.APIError{Code: apperr.CodeHasOutstandingLoans, Message: "tool has units on loan"}
	ErrDuplicateCode       = apperr.Conflict(apperr.ReasonDuplicateCode, "tool code already exists")
	ErrToolReferenced      = apperr.Conflict(apperr.ReasonReferenced, "tool is referenced by loan history")
)

// Ledger は在庫カウンタの唯一の更新経路。呼び出し側の Tx の中で使う。
type Ledger struct {
	store *Store
}

func NewLedger(store *Store) *Ledger { return &Ledger{store: store} }

// Reserve: available -= qty, on_loan += qty
func (l *Ledger) Reserve(ctx context.Context, tx db.DBTX, toolID int64, qty int) error {
	if qty <= 0 {
		return apperr.Invalid("quantity must be > 0")
	}
	t, err := l.store.lockTool(ctx, tx, toolID)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			return err
		}
		return apperr.Internal(err)
	}
	if qty > t.QuantityAvailable {
		return ErrInsufficientStock.WithMessage(
			fmt.Sprintf("insufficient stock: requested %d, available %d", qty, t.QuantityAvailable))
	}

	// ロックが無い方言でも二重引当しないよう WHERE で再確認する
	const q = `
UPDATE tools
SET quantity_available = quantity_available - ?, quantity_on_loan = quantity_on_loan + ?
WHERE id = ? AND quantity_available >= ?`
	res, err := tx.ExecContext(ctx, q, qty, qty, toolID, qty)
	if err != nil {
		return apperr.Internal(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if aff != 1 {
		return ErrInsufficientStock
	}
	return nil
}

// Release: available += qty, on_loan -= qty。返却遷移からのみ呼ぶ。
func (l *Ledger) Release(ctx context.Context, tx db.DBTX, toolID int64, qty int) error {
	if qty <= 0 {
		return apperr.Invalid("quantity must be > 0")
	}
	const q = `
UPDATE tools
SET quantity_available = quantity_available + ?, quantity_on_loan = quantity_on_loan - ?
WHERE id = ? AND quantity_on_loan >= ?`
	res, err := tx.ExecContext(ctx, q, qty, qty, toolID, qty)
	if err != nil {
		return apperr.Internal(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if aff != 1 {
		return apperr.Internalf("release tool %d qty %d: on_loan counter out of sync", toolID, qty)
	}
	return nil
}
