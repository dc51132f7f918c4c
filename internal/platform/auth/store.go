package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/paging"
)

type User struct {
	ID             int64
	DocumentNumber string
	FullName       string
	Email          string
	Role           Role
	PasswordHash   string
	CreatedAt      time.Time
}

type Store struct{ db *db.Conn }

func NewStore(conn *db.Conn) *Store { return &Store{db: conn} }

const userColumns = `id, document_number, full_name, email, role, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.DocumentNumber, &u.FullName, &u.Email, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

// 見つからなければ nil, nil
func (s *Store) GetByDocument(ctx context.Context, document string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE document_number = ? LIMIT 1`, document))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *Store) Create(ctx context.Context, u *User) error {
	const q = `
INSERT INTO users (document_number, full_name, email, role, password_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, u.DocumentNumber, u.FullName, u.Email, string(u.Role), u.PasswordHash, u.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *Store) List(ctx context.Context, search string, p paging.Params) ([]User, int64, error) {
	where := ""
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		where = ` WHERE (full_name LIKE ?` + db.LikeEscape + ` OR document_number LIKE ?` + db.LikeEscape + ` OR email LIKE ?` + db.LikeEscape + `)`
		like := db.Contains(search)
		args = append(args, like, like, like)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY full_name ASC, id ASC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

// Update は全列を書き戻す。呼び出し側で取得→変更済みのものを渡す。
func (s *Store) Update(ctx context.Context, u *User) (int64, error) {
	const q = `
UPDATE users SET document_number = ?, full_name = ?, email = ?, role = ?, password_hash = ?
WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, u.DocumentNumber, u.FullName, u.Email, string(u.Role), u.PasswordHash, u.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
