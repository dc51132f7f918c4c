package products

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/paging"
)

type Store struct {
	db *db.Conn
}

func NewStore(conn *db.Conn) *Store { return &Store{db: conn} }

const productColumns = `id, code, name, responsible, quantity, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Responsible, &p.Quantity, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) Get(ctx context.Context, q db.DBTX, id int64) (*Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// lockProduct は tx 内で行ロックを取って読む
func (s *Store) lockProduct(ctx context.Context, tx db.DBTX, id int64) (*Product, error) {
	p, err := scanProduct(tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`+s.db.ForUpdate(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *Store) Insert(ctx context.Context, p *Product) error {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO products (code, name, responsible, quantity, created_at)
VALUES (?, ?, ?, ?, ?)`, p.Code, p.Name, p.Responsible, p.Quantity, p.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (s *Store) update(ctx context.Context, tx db.DBTX, p *Product) error {
	_, err := tx.ExecContext(ctx, `
UPDATE products SET code = ?, name = ?, responsible = ?, quantity = ?
WHERE id = ?`, p.Code, p.Name, p.Responsible, p.Quantity, p.ID)
	return err
}

func (s *Store) delete(ctx context.Context, tx db.DBTX, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

func (s *Store) List(ctx context.Context, search string, p paging.Params) ([]Product, int64, error) {
	where := ""
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		where = ` WHERE (name LIKE ?` + db.LikeEscape + ` OR code LIKE ?` + db.LikeEscape + ` OR responsible LIKE ?` + db.LikeEscape + `)`
		like := db.Contains(search)
		args = append(args, like, like, like)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products`+where+` ORDER BY name ASC, id ASC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		pr, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *pr)
	}
	return out, total, rows.Err()
}

// ===== stock_outs =====

const stockOutSelect = `
SELECT o.id, o.product_id, p.code, p.name, o.quantity, o.responsible, o.reason,
       o.recorded_by, u.full_name, o.created_at
FROM stock_outs o
JOIN products p ON p.id = o.product_id
JOIN users u ON u.id = o.recorded_by`

func scanStockOut(row interface{ Scan(...any) error }) (*StockOut, error) {
	var o StockOut
	err := row.Scan(&o.ID, &o.ProductID, &o.ProductCode, &o.ProductName, &o.Quantity,
		&o.Responsible, &o.Reason, &o.RecordedBy, &o.RecordedByName, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) insertStockOut(ctx context.Context, tx db.DBTX, o *StockOut) error {
	res, err := tx.ExecContext(ctx, `
INSERT INTO stock_outs (product_id, quantity, responsible, reason, recorded_by, created_at)
VALUES (?, ?, ?, ?, ?, ?)`, o.ProductID, o.Quantity, o.Responsible, o.Reason, o.RecordedBy, o.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (s *Store) GetStockOut(ctx context.Context, q db.DBTX, id int64) (*StockOut, error) {
	o, err := scanStockOut(q.QueryRowContext(ctx, stockOutSelect+` WHERE o.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStockOutNotFound
	}
	return o, err
}

// ListStockOuts は新しい順。productID が 0 なら全商品。
func (s *Store) ListStockOuts(ctx context.Context, productID int64, p paging.Params) ([]StockOut, int64, error) {
	where := ""
	args := []any{}
	if productID > 0 {
		where = ` WHERE o.product_id = ?`
		args = append(args, productID)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock_outs o`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		stockOutSelect+where+` ORDER BY o.created_at DESC, o.id DESC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []StockOut
	for rows.Next() {
		o, err := scanStockOut(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}
