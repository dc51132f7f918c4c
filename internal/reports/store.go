package reports

import (
	"context"

	"toolcrib-backend/internal/platform/db"
)

func totals(ctx context.Context, q db.DBTX, s *Summary) error {
	err := q.QueryRowContext(ctx, `
	SELECT COUNT(*),
	       COALESCE(SUM(quantity_total), 0),
	       COALESCE(SUM(quantity_available), 0),
	       COALESCE(SUM(quantity_on_loan), 0)
	FROM tools`).Scan(&s.Tools, &s.UnitsTotal, &s.UnitsAvailable, &s.UnitsOnLoan)
	if err != nil {
		return err
	}
	err = q.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(CASE WHEN status = 'Active' THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN status = 'Returned' THEN 1 ELSE 0 END), 0)
	FROM loans`).Scan(&s.LoansActive, &s.LoansReturned)
	if err != nil {
		return err
	}
	// 消耗品
	err = q.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM products`).Scan(&s.Products, &s.ProductUnits)
	if err != nil {
		return err
	}
	return q.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM stock_outs`).Scan(&s.StockOuts, &s.UnitsWithdrawn)
}

// 貸出中の数量が多い順。貸出中がない工具は含めない
func topOnLoan(ctx context.Context, q db.DBTX, limit int) ([]ToolUse, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT t.id, t.name, t.quantity_on_loan,
	       (SELECT COUNT(*) FROM loans l WHERE l.tool_id = t.id AND l.status = 'Active')
	FROM tools t
	WHERE t.quantity_on_loan > 0
	ORDER BY t.quantity_on_loan DESC, t.id ASC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ToolUse, 0, limit)
	for rows.Next() {
		var u ToolUse
		if err := rows.Scan(&u.ToolID, &u.Name, &u.UnitsOnLoan, &u.ActiveLoans); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
