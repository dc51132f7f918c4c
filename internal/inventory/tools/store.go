package tools

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

const toolColumns = `id, code, responsible, name, quantity_total, quantity_available, quantity_on_loan, created_at`

func scanTool(row interface{ Scan(...any) error }) (*Tool, error) {
	var t Tool
	err := row.Scan(&t.ID, &t.Code, &t.Responsible, &t.Name,
		&t.QuantityTotal, &t.QuantityAvailable, &t.QuantityOnLoan, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) Get(ctx context.Context, q db.DBTX, id int64) (*Tool, error) {
	t, err := scanTool(q.QueryRowContext(ctx, `SELECT `+toolColumns+` FROM tools WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrToolNotFound
	}
	return t, err
}

// lockTool は tx 内で行ロックを取って読む
func (s *Store) lockTool(ctx context.Context, tx db.DBTX, id int64) (*Tool, error) {
	t, err := scanTool(tx.QueryRowContext(ctx, `SELECT `+toolColumns+` FROM tools WHERE id = ?`+s.db.ForUpdate(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrToolNotFound
	}
	return t, err
}

func (s *Store) Insert(ctx context.Context, t *Tool) error {
	const q = `
INSERT INTO tools (code, responsible, name, quantity_total, quantity_available, quantity_on_loan, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, t.Code, t.Responsible, t.Name,
		t.QuantityTotal, t.QuantityAvailable, t.QuantityOnLoan, t.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func (s *Store) update(ctx context.Context, tx db.DBTX, t *Tool) error {
	const q = `
UPDATE tools SET code = ?, responsible = ?, name = ?,
  quantity_total = ?, quantity_available = ?, quantity_on_loan = ?
WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, t.Code, t.Responsible, t.Name,
		t.QuantityTotal, t.QuantityAvailable, t.QuantityOnLoan, t.ID)
	return err
}

func (s *Store) delete(ctx context.Context, tx db.DBTX, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tools WHERE id = ?`, id)
	return err
}

func (s *Store) List(ctx context.Context, search string, p paging.Params) ([]Tool, int64, error) {
	where := ""
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		where = ` WHERE (name LIKE ?` + db.LikeEscape + ` OR responsible LIKE ?` + db.LikeEscape + ` OR code LIKE ?` + db.LikeEscape + `)`
		like := db.Contains(search)
		args = append(args, like, like, like)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tools`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+toolColumns+` FROM tools`+where+` ORDER BY name ASC, id ASC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}
