// Package reports は在庫と貸出の集計を読み取り専用で返す。
package reports

import (
	"context"
	"time"

	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
)

const (
	defaultTop = 5
	maxTop     = 50
)

type Service struct {
	db  *db.Conn
	now func() time.Time
}

func NewService(conn *db.Conn) *Service {
	return &Service{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

// Summary は1つの読み取りTxで集計するので数字同士は食い違わない。
func (s *Service) Summary(ctx context.Context, top int) (Summary, error) {
	if top <= 0 {
		top = defaultTop
	}
	if top > maxTop {
		top = maxTop
	}

	var out Summary
	err := db.ReadOnly(ctx, s.db.DB, func(ctx context.Context, tx db.DBTX) error {
		if err := totals(ctx, tx, &out); err != nil {
			return err
		}
		var err error
		out.TopOnLoan, err = topOnLoan(ctx, tx, top)
		return err
	})
	if err != nil {
		return Summary{}, apperr.Internal(err)
	}
	out.GeneratedAt = s.now()
	return out, nil
}
