package loans

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/paging"
)

// export の上限
const maxExportRows = 10000

type Store struct {
	db *db.Conn
}

func NewStore(conn *db.Conn) *Store { return &Store{db: conn} }

const loanColumns = `id, ticket_number, tool_id, quantity, responsible, usage_location, issued_by,
  status, created_at, returned_at, return_notes, returned_by`

const joinedSelect = `
SELECT l.id, l.ticket_number, l.tool_id, l.quantity, l.responsible, l.usage_location, l.issued_by,
  l.status, l.created_at, l.returned_at, l.return_notes, l.returned_by,
  t.name, u.full_name, ru.full_name
FROM loans l
JOIN tools t ON t.id = l.tool_id
JOIN users u ON u.id = l.issued_by
LEFT JOIN users ru ON ru.id = l.returned_by`

func scanLoan(row interface{ Scan(...any) error }, extra ...any) (*Loan, error) {
	var m Loan
	var status string
	dest := []any{&m.ID, &m.TicketNumber, &m.ToolID, &m.Quantity, &m.Responsible, &m.UsageLocation, &m.IssuedBy,
		&status, &m.CreatedAt, &m.ReturnedAt, &m.ReturnNotes, &m.ReturnedBy}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.Status = Status(status)
	return &m, nil
}

func scanRow(row interface{ Scan(...any) error }) (*loanRow, error) {
	var r loanRow
	m, err := scanLoan(row, &r.ToolName, &r.IssuerName, &r.ReturnerName)
	if err != nil {
		return nil, err
	}
	r.Loan = *m
	return &r, nil
}

// TicketsWithPrefix: 当日分のチケット番号を全部返す（DATE() は方言差があるので前方一致）
func (s *Store) TicketsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticket_number FROM loans WHERE ticket_number LIKE ?`+db.LikeEscape, db.HasPrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ticketExists(ctx context.Context, tx db.DBTX, ticket string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM loans WHERE ticket_number = ? LIMIT 1`, ticket).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) insert(ctx context.Context, tx db.DBTX, m *Loan) error {
	const q = `
INSERT INTO loans (ticket_number, tool_id, quantity, responsible, usage_location, issued_by, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.TicketNumber, m.ToolID, m.Quantity, m.Responsible,
		m.UsageLocation, m.IssuedBy, string(m.Status), m.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (s *Store) lockLoan(ctx context.Context, tx db.DBTX, id int64) (*Loan, error) {
	m, err := scanLoan(tx.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`+s.db.ForUpdate(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	return m, err
}

// markReturned は Active の行だけを更新する。0件なら既に返却済み。
func (s *Store) markReturned(ctx context.Context, tx db.DBTX, id int64, at time.Time, notes sql.NullString, by int64) (int64, error) {
	const q = `
UPDATE loans SET status = ?, returned_at = ?, return_notes = ?, returned_by = ?
WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, string(StatusReturned), at, notes, by, id, string(StatusActive))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) getRow(ctx context.Context, q db.DBTX, id int64) (*loanRow, error) {
	r, err := scanRow(q.QueryRowContext(ctx, joinedSelect+` WHERE l.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	return r, err
}

func buildWhere(f ListQuery) (string, []any) {
	var conds []string
	var args []any
	if search := strings.TrimSpace(f.Search); search != "" {
		conds = append(conds, `(l.ticket_number LIKE ?` + db.LikeEscape + ` OR t.name LIKE ?` + db.LikeEscape + ` OR l.responsible LIKE ?` + db.LikeEscape + `)`)
		like := db.Contains(search)
		args = append(args, like, like, like)
	}
	if f.Status != nil {
		conds = append(conds, `l.status = ?`)
		args = append(args, string(*f.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) list(ctx context.Context, f ListQuery, p paging.Params) ([]loanRow, int64, error) {
	where, args := buildWhere(f)

	var total int64
	countQ := `SELECT COUNT(*) FROM loans l JOIN tools t ON t.id = l.tool_id` + where
	if err := s.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.queryRows(ctx, joinedSelect+where+` ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	return rows, total, err
}

func (s *Store) listAll(ctx context.Context, f ListQuery) ([]loanRow, error) {
	where, args := buildWhere(f)
	return s.queryRows(ctx, joinedSelect+where+` ORDER BY l.created_at DESC, l.id DESC LIMIT ?`,
		append(args, maxExportRows)...)
}

func (s *Store) queryRows(ctx context.Context, q string, args ...any) ([]loanRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loanRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
